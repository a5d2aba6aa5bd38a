// Package domain defines the resource kinds served by the application and
// their persistence models. Each kind pairs an output entity (with its
// server-assigned id) and an inbound payload carrying the field constraints
// as validator tags.
package domain

// Person is a stored person record.
//
// Fields:
//   - ID: server-assigned AUTOINCREMENT primary key; never reused.
//   - Name, City, Occupation, Education: free text, at least 2 characters.
//   - Age: whole years, 1..120 inclusive.
type Person struct {
	ID         int64  `json:"id"         gorm:"primaryKey;autoIncrement"`
	Name       string `json:"name"       gorm:"type:text;not null"`
	City       string `json:"city"       gorm:"type:text;not null"`
	Occupation string `json:"occupation" gorm:"type:text;not null"`
	Age        int    `json:"age"        gorm:"not null"`
	Education  string `json:"education"  gorm:"type:text;not null"`
}

// TableName returns the database table name for Person.
func (Person) TableName() string { return "people" }

// RecordID returns the server-assigned id.
func (p Person) RecordID() int64 { return p.ID }

// CreatePerson is the inbound payload for creating a Person.
type CreatePerson struct {
	Name       string `json:"name"       validate:"required,min=2"`
	City       string `json:"city"       validate:"required,min=2"`
	Occupation string `json:"occupation" validate:"required,min=2"`
	Age        int    `json:"age"        validate:"min=1,max=120"`
	Education  string `json:"education"  validate:"required,min=2"`
}

// Keyboard is a stored keyboard record.
//
// Fields:
//   - ID: server-assigned AUTOINCREMENT primary key; never reused.
//   - Brand, SwitchType, Connection: at least 2 characters.
//   - Model: at least 1 character.
//   - KeyCount: 20..120 inclusive.
type Keyboard struct {
	ID         int64  `json:"id"          gorm:"primaryKey;autoIncrement"`
	Brand      string `json:"brand"       gorm:"type:text;not null"`
	Model      string `json:"model"       gorm:"type:text;not null"`
	SwitchType string `json:"switch_type" gorm:"type:text;not null"`
	KeyCount   int    `json:"key_count"   gorm:"not null"`
	Connection string `json:"connection"  gorm:"type:text;not null"`
}

// TableName returns the database table name for Keyboard.
func (Keyboard) TableName() string { return "keyboards" }

// RecordID returns the server-assigned id.
func (k Keyboard) RecordID() int64 { return k.ID }

// CreateKeyboard is the inbound payload for creating a Keyboard.
type CreateKeyboard struct {
	Brand      string `json:"brand"       validate:"required,min=2"`
	Model      string `json:"model"       validate:"required,min=1"`
	SwitchType string `json:"switch_type" validate:"required,min=2"`
	KeyCount   int    `json:"key_count"   validate:"min=20,max=120"`
	Connection string `json:"connection"  validate:"required,min=2"`
}
