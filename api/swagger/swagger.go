package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ExamHub API",
        "description": "Catalog, search and moderation of shared exam papers",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Taxonomy", "description": "Education levels, classes and subjects"},
        {"name": "Catalog", "description": "Filtered listings and ranked search"},
        {"name": "Documents", "description": "Submission, detail and downloads"},
        {"name": "Favorites", "description": "Caller bookmarks"},
        {"name": "Moderation", "description": "Review workflow for moderators"},
        {"name": "System", "description": "Probes and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {"tags": ["System"], "summary": "Liveness check", "responses": {"200": {"description": "OK"}}}
        },
        "/ready": {
            "get": {"tags": ["System"], "summary": "Readiness check", "responses": {"200": {"description": "Ready"}, "503": {"description": "Degraded"}}}
        },
        "/taxonomy": {
            "get": {
                "tags": ["Taxonomy"],
                "summary": "List education levels",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/taxonomy/levels/{id}": {
            "get": {
                "tags": ["Taxonomy"],
                "summary": "Get one education level",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown level", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List approved documents",
                "parameters": [
                    {"name": "classe", "in": "query", "type": "string"},
                    {"name": "matiere", "in": "query", "type": "string"},
                    {"name": "sort", "in": "query", "type": "string", "enum": ["recent", "popular", "favorites"]},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sig", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Documents"],
                "summary": "Submit document metadata",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDocumentRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/search": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Ranked free-text search",
                "parameters": [
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sig", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/documents/upload": {
            "post": {
                "tags": ["Documents"],
                "summary": "Upload a document file",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "title", "in": "formData", "required": true, "type": "string"},
                    {"name": "description", "in": "formData", "type": "string"},
                    {"name": "classe", "in": "formData", "required": true, "type": "string"},
                    {"name": "matiere", "in": "formData", "required": true, "type": "string"},
                    {"name": "levelId", "in": "formData", "required": true, "type": "string"}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/documents/upload-url": {
            "post": {
                "tags": ["Documents"],
                "summary": "Presign a direct upload",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UploadURLRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/documents/{id}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Get document",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{id}/download": {
            "post": {
                "tags": ["Documents"],
                "summary": "Record a download and resolve the file link",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/favorites": {
            "get": {
                "tags": ["Favorites"],
                "summary": "List favorite documents",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/favorites/{id}": {
            "get": {
                "tags": ["Favorites"],
                "summary": "Check whether a document is a favorite",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/favorites/{id}/toggle": {
            "post": {
                "tags": ["Favorites"],
                "summary": "Add or remove a favorite",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/moderation/queue": {
            "get": {
                "tags": ["Moderation"],
                "summary": "List documents awaiting review",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/documents": {
            "get": {
                "tags": ["Moderation"],
                "summary": "List documents of every status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "approved", "rejected"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/documents/{id}": {
            "delete": {
                "tags": ["Moderation"],
                "summary": "Delete a document",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/admin/documents/{id}/approve": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Approve a pending document",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/documents/{id}/reject": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Reject a pending document",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RejectDocumentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/documents/{id}/favorites/reconcile": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Reset a favorite counter to the ledger count",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/documents/{id}/audit": {
            "get": {
                "tags": ["Moderation"],
                "summary": "Audit trail of a document",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/taxonomy/levels/{id}/classes": {
            "post": {
                "tags": ["Taxonomy"],
                "summary": "Add a class to a level",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TaxonomyValueRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/taxonomy/levels/{id}/subjects": {
            "post": {
                "tags": ["Taxonomy"],
                "summary": "Add a subject to a level",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TaxonomyValueRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Process metrics summary",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "CreateDocumentRequest": {
            "type": "object",
            "required": ["title", "classe", "matiere", "levelId", "fileName", "fileRef"],
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "classe": {"type": "string"},
                "matiere": {"type": "string"},
                "levelId": {"type": "string"},
                "fileName": {"type": "string"},
                "fileSize": {"type": "number"},
                "fileRef": {"type": "string"}
            }
        },
        "UploadURLRequest": {
            "type": "object",
            "required": ["fileName"],
            "properties": {
                "fileName": {"type": "string"},
                "contentType": {"type": "string"}
            }
        },
        "RejectDocumentRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "TaxonomyValueRequest": {
            "type": "object",
            "required": ["value"],
            "properties": {
                "value": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "window": {"type": "array", "items": {}}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
