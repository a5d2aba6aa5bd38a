// Package docs registers the OpenAPI document served by gin-swagger.
//
// The resource routes are mounted by one generic handler per kind, so the
// per-kind paths are described here directly rather than derived from
// handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/people": {
            "get": {
                "description": "Returns every person ordered by id. With page/page_size a pagination block is added. Supports weak ETag via If-None-Match.",
                "produces": ["application/json"],
                "tags": ["people"],
                "summary": "List people",
                "parameters": [
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"},
                    {"type": "string", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PeopleList"}},
                    "304": {"description": "Not Modified"},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Validates the payload and stores it; the server assigns the id. Same Idempotency-Key, same result.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["people"],
                "summary": "Create a person",
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.CreatePerson"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.PersonItem"}},
                    "200": {"description": "Replayed result", "schema": {"$ref": "#/definitions/handlers.PersonItem"}},
                    "400": {"description": "Malformed body", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Idempotency conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "413": {"description": "Body too large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Rate limited"},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/people/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["people"],
                "summary": "Get a person by id",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true, "minimum": 1}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PersonItem"}},
                    "400": {"description": "Malformed id", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/keyboards": {
            "get": {
                "description": "Returns every keyboard ordered by id. With page/page_size a pagination block is added. Supports weak ETag via If-None-Match.",
                "produces": ["application/json"],
                "tags": ["keyboards"],
                "summary": "List keyboards",
                "parameters": [
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"},
                    {"type": "string", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.KeyboardList"}},
                    "304": {"description": "Not Modified"},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Validates the payload and stores it; the server assigns the id. Same Idempotency-Key, same result.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["keyboards"],
                "summary": "Create a keyboard",
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.CreateKeyboard"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.KeyboardItem"}},
                    "200": {"description": "Replayed result", "schema": {"$ref": "#/definitions/handlers.KeyboardItem"}},
                    "400": {"description": "Malformed body", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Idempotency conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "413": {"description": "Body too large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Rate limited"},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/keyboards/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["keyboards"],
                "summary": "Get a keyboard by id",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true, "minimum": 1}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.KeyboardItem"}},
                    "400": {"description": "Malformed id", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["ops"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "tags": ["ops"],
                "summary": "Readiness probe (database ping)",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Database unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Person": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "example": 1},
                "name": {"type": "string", "example": "Ana"},
                "city": {"type": "string", "example": "Lima"},
                "occupation": {"type": "string", "example": "Engineer"},
                "age": {"type": "integer", "example": 30},
                "education": {"type": "string", "example": "BSc"}
            }
        },
        "domain.CreatePerson": {
            "type": "object",
            "required": ["name", "city", "occupation", "education"],
            "properties": {
                "name": {"type": "string", "minLength": 2},
                "city": {"type": "string", "minLength": 2},
                "occupation": {"type": "string", "minLength": 2},
                "age": {"type": "integer", "minimum": 1, "maximum": 120},
                "education": {"type": "string", "minLength": 2}
            }
        },
        "domain.Keyboard": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "example": 1},
                "brand": {"type": "string", "example": "Keychron"},
                "model": {"type": "string", "example": "K2"},
                "switch_type": {"type": "string", "example": "Brown"},
                "key_count": {"type": "integer", "example": 84},
                "connection": {"type": "string", "example": "Bluetooth"}
            }
        },
        "domain.CreateKeyboard": {
            "type": "object",
            "required": ["brand", "model", "switch_type", "connection"],
            "properties": {
                "brand": {"type": "string", "minLength": 2},
                "model": {"type": "string", "minLength": 1},
                "switch_type": {"type": "string", "minLength": 2},
                "key_count": {"type": "integer", "minimum": 20, "maximum": 120},
                "connection": {"type": "string", "minLength": 2}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.PersonItem": {
            "type": "object",
            "properties": {"data": {"$ref": "#/definitions/domain.Person"}}
        },
        "handlers.PeopleList": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/domain.Person"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.KeyboardItem": {
            "type": "object",
            "properties": {"data": {"$ref": "#/definitions/domain.Keyboard"}}
        },
        "handlers.KeyboardList": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/domain.Keyboard"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.FieldError": {
            "type": "object",
            "properties": {
                "field": {"type": "string", "example": "key_count"},
                "rule": {"type": "string", "example": "min"},
                "param": {"type": "string", "example": "20"},
                "message": {"type": "string", "example": "key_count must be at least 20"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "people 7 not found"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/handlers.FieldError"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "ruser API",
	Description:      "Read and create people and keyboards stored in SQLite.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
