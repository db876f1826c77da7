package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Student Card API",
        "description": "Generates student ID cards as PNG images and ZIP archives.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Students", "description": "Session student records"},
        {"name": "Cards", "description": "Card rendering and archives"},
        {"name": "Imports", "description": "Spreadsheet import"},
        {"name": "Batches", "description": "Asynchronous card archives"},
        {"name": "System", "description": "Service metrics"}
    ],
    "paths": {
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["green", "yellow", "red"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StudentPayload"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/export": {
            "get": {
                "tags": ["Students"],
                "summary": "Export the student roster",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "Roster file", "schema": {"type": "file"}}}
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student detail",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StudentPayload"}}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/students/{id}/photo": {
            "put": {
                "tags": ["Students"],
                "summary": "Replace student photo",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "photo", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {"200": {"description": "OK"}, "413": {"description": "Photo too large"}}
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Remove student photo",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students/{id}/card.png": {
            "get": {
                "tags": ["Cards"],
                "summary": "Download a student's card",
                "produces": ["image/png"],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "1004x638 PNG", "schema": {"type": "file"}}}
            }
        },
        "/cards/archive": {
            "post": {
                "tags": ["Cards"],
                "summary": "Download cards as a ZIP archive",
                "produces": ["application/zip"],
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ArchiveRequest"}}
                ],
                "responses": {
                    "200": {"description": "carteirinhas-estudantes.zip", "schema": {"type": "file"}},
                    "409": {"description": "Another archive is being generated"}
                }
            }
        },
        "/imports/preview": {
            "post": {
                "tags": ["Imports"],
                "summary": "Preview a spreadsheet",
                "consumes": ["multipart/form-data"],
                "parameters": [{"name": "file", "in": "formData", "required": true, "type": "file"}],
                "responses": {"200": {"description": "Headers, preview rows and suggested mapping"}}
            }
        },
        "/imports": {
            "post": {
                "tags": ["Imports"],
                "summary": "Import students from a spreadsheet",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "mapping", "in": "formData", "type": "string", "description": "ColumnMapping as JSON"}
                ],
                "responses": {"201": {"description": "Imported"}, "422": {"description": "Spreadsheet could not be imported"}}
            }
        },
        "/batches": {
            "post": {
                "tags": ["Batches"],
                "summary": "Queue a card archive",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ArchiveRequest"}}
                ],
                "responses": {"202": {"description": "Queued"}}
            }
        },
        "/batches/{id}": {
            "get": {
                "tags": ["Batches"],
                "summary": "Batch status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/batches/download/{token}": {
            "get": {
                "tags": ["Batches"],
                "summary": "Download a finished batch via signed token",
                "produces": ["application/zip"],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Archive", "schema": {"type": "file"}}, "403": {"description": "Invalid or expired token"}}
            }
        },
        "/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Aggregated service metrics",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "StudentPayload": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "registrationNumber": {"type": "string"},
                "className": {"type": "string"},
                "guardianName": {"type": "string"},
                "schoolName": {"type": "string"},
                "photo": {"type": "string", "description": "base64 data URL"},
                "status": {"type": "string", "enum": ["green", "yellow", "red"]},
                "authorizedPeople": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ArchiveRequest": {
            "type": "object",
            "properties": {
                "studentIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
