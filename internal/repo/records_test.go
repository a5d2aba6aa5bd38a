package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/tbourn/ruser/internal/domain"
)

func person(name string, age int) domain.Person {
	return domain.Person{Name: name, City: "Lima", Occupation: "Eng", Age: age, Education: "BSc"}
}

func TestInsertRecord_Error_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	p := person("Ana", 30)
	if err := InsertRecord(context.Background(), db, domain.People.Table, &p); err == nil {
		t.Fatalf("expected error inserting without table")
	}
}

func TestInsertRecord_AssignsID_AndGetRoundTrip(t *testing.T) {
	db := newRepoDB(t, &domain.Person{})
	ctx := context.Background()

	p := person("Ana", 30)
	if err := InsertRecord(ctx, db, domain.People.Table, &p); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if p.ID != 1 {
		t.Fatalf("expected first id to be 1, got %d", p.ID)
	}

	got, err := GetRecord[domain.Person](ctx, db, domain.People.Table, p.ID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if *got != p {
		t.Fatalf("round-trip mismatch: got %+v want %+v", *got, p)
	}
}

func TestGetRecord_NotFound(t *testing.T) {
	db := newRepoDB(t, &domain.Keyboard{})
	got, err := GetRecord[domain.Keyboard](context.Background(), db, domain.Keyboards.Table, 42)
	if got != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound), got (%v, %v)", got, err)
	}
}

func TestGetRecord_Error_NoTable(t *testing.T) {
	db := newRepoDB(t)
	_, err := GetRecord[domain.Keyboard](context.Background(), db, domain.Keyboards.Table, 1)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a storage error, got %v", err)
	}
}

func TestListRecords_EmptyIsNonNil_AndOrdered(t *testing.T) {
	db := newRepoDB(t, &domain.Person{})
	ctx := context.Background()

	out, err := ListRecords[domain.Person](ctx, db, domain.People.Table)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}

	for i := 0; i < 3; i++ {
		p := person(fmt.Sprintf("P%d", i), 20+i)
		if err := InsertRecord(ctx, db, domain.People.Table, &p); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	out, err = ListRecords[domain.Person](ctx, db, domain.People.Table)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i-1].ID >= out[i].ID {
			t.Fatalf("expected ascending ids, got %d then %d", out[i-1].ID, out[i].ID)
		}
	}
}

func TestListRecordsPage_AndCount(t *testing.T) {
	db := newRepoDB(t, &domain.Keyboard{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		k := domain.Keyboard{Brand: "Keychron", Model: fmt.Sprintf("K%d", i), SwitchType: "Brown", KeyCount: 84, Connection: "USB"}
		if err := InsertRecord(ctx, db, domain.Keyboards.Table, &k); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	total, err := CountRecords(ctx, db, domain.Keyboards.Table)
	if err != nil || total != 5 {
		t.Fatalf("CountRecords = %d, %v; want 5", total, err)
	}

	page, err := ListRecordsPage[domain.Keyboard](ctx, db, domain.Keyboards.Table, 2, 2)
	if err != nil {
		t.Fatalf("ListRecordsPage: %v", err)
	}
	if len(page) != 2 || page[0].Model != "K2" || page[1].Model != "K3" {
		t.Fatalf("unexpected page: %+v", page)
	}

	tail, err := ListRecordsPage[domain.Keyboard](ctx, db, domain.Keyboards.Table, 4, 2)
	if err != nil || len(tail) != 1 {
		t.Fatalf("expected 1 trailing row, got %d (%v)", len(tail), err)
	}
}

func TestCountRecords_Error_NoTable(t *testing.T) {
	db := newRepoDB(t)
	if _, err := CountRecords(context.Background(), db, "people"); err == nil {
		t.Fatalf("expected error counting missing table")
	}
}

func TestInsertRecord_ConcurrentIDsAreUnique(t *testing.T) {
	db := newRepoDB(t, &domain.Person{})
	ctx := context.Background()

	const n = 25
	ids := make([]int64, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			p := person(fmt.Sprintf("P%02d", i), 30)
			if err := InsertRecord(ctx, db, domain.People.Table, &p); err != nil {
				return err
			}
			ids[i] = p.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent inserts: %v", err)
	}

	seen := make(map[int64]bool, n)
	for _, id := range ids {
		if id == 0 || seen[id] {
			t.Fatalf("duplicate or missing id %d in %v", id, ids)
		}
		seen[id] = true
	}
	if total, _ := CountRecords(ctx, db, domain.People.Table); total != n {
		t.Fatalf("expected %d rows, got %d", n, total)
	}
}
