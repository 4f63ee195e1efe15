// Package docs registers the OpenAPI description of the HTTP API with swag.
// It follows the layout swag init generates; keep it in step with the
// route annotations in internal/handlers.
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
        "/api/events": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "List or search events",
                "parameters": [
                    {"type": "string", "description": "Full-text query over title and venue", "name": "query", "in": "query"},
                    {"type": "string", "description": "Day of the event, YYYY-MM-DD", "name": "date", "in": "query"},
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "maximum": 100, "name": "pageSize", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/EventResponse"}}},
                    "400": {"description": "invalid-argument", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "permission-denied", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Create an event (admin)",
                "parameters": [
                    {"description": "Event", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/CreateEventResponse"}},
                    "400": {"description": "invalid-argument", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "permission-denied", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/events/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Get an event",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EventResponse"}},
                    "404": {"description": "not-found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/reservations": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "List the caller's reservations",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/ReservationResponse"}}},
                    "401": {"description": "permission-denied", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "Reserve one ticket",
                "description": "With hold the reservation starts pending and expires unless confirmed.",
                "parameters": [
                    {"description": "Reservation", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReservationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/CreateReservationResponse"}},
                    "400": {"description": "invalid-argument", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "not-found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "412": {"description": "failed-precondition (sold out)", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "429": {"description": "resource-exhausted", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/reservations/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "Get one of the caller's reservations",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ReservationResponse"}},
                    "404": {"description": "not-found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/reservations/{id}/confirm": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "Confirm a held reservation",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ReservationResponse"}},
                    "412": {"description": "failed-precondition", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "not-found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/reservations/{id}/cancel": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "Cancel a reservation",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ReservationResponse"}},
                    "412": {"description": "failed-precondition", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "not-found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/cache": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Drop every cached read (admin)",
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "permission-denied", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/internal/auth/users": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["hooks"],
                "summary": "Auth provider account-created hook",
                "parameters": [
                    {"type": "string", "description": "Shared hook secret", "name": "X-Hook-Secret", "in": "header", "required": true},
                    {"description": "Account", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AuthUserHook"}}
                ],
                "responses": {
                    "202": {"description": "Accepted"},
                    "401": {"description": "permission-denied", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "AuthUserHook": {
            "type": "object",
            "required": ["uid", "email"],
            "properties": {
                "uid": {"type": "string"},
                "email": {"type": "string"},
                "displayName": {"type": "string"}
            }
        },
        "CreateEventRequest": {
            "type": "object",
            "required": ["title", "venue", "startsAt"],
            "properties": {
                "title": {"type": "string"},
                "venue": {"type": "string"},
                "startsAt": {"type": "string", "format": "date-time"},
                "availableTickets": {"type": "integer", "minimum": 0}
            }
        },
        "CreateEventResponse": {
            "type": "object",
            "properties": {"id": {"type": "string"}}
        },
        "CreateReservationRequest": {
            "type": "object",
            "required": ["eventId", "date"],
            "properties": {
                "eventId": {"type": "string"},
                "date": {"type": "string"},
                "hold": {"type": "boolean"}
            }
        },
        "CreateReservationResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "reservationId": {"type": "string"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "EventResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "venue": {"type": "string"},
                "startsAt": {"type": "string", "format": "date-time"},
                "availableTickets": {"type": "integer"}
            }
        },
        "ReservationResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "eventId": {"type": "string"},
                "date": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "confirmed", "cancelled", "expired"]},
                "emailSent": {"type": "boolean"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ticketline API",
	Description:      "Concert ticket reservations.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
