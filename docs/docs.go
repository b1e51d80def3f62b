// Package docs is generated by swag from the handler annotations; regenerate
// with `swag init -g cmd/server/main.go`.
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
        "/auth/google/login": {
            "get": {
                "tags": ["Auth"],
                "summary": "Google sign-in URL",
                "parameters": [{"type": "string", "name": "invitation_token", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.GoogleAuthURL"}}}
            }
        },
        "/auth/google/callback": {
            "get": {
                "tags": ["Auth"],
                "summary": "Google OAuth callback",
                "parameters": [
                    {"type": "string", "name": "code", "in": "query"},
                    {"type": "string", "name": "state", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.TokenResponse"}},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Refresh tokens",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.RefreshRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.TokenResponse"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Auth"],
                "summary": "Current user",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}}}
            }
        },
        "/devices/generate-code": {
            "post": {
                "tags": ["Devices"],
                "summary": "Request a pairing code",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.GenerateCodeRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.PairingCode"}},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/devices/link": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Devices"],
                "summary": "Link a device with its pairing code",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.LinkDeviceRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Device"}},
                    "400": {"description": "Bad Request"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/invitations": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Invitations"],
                "summary": "Invite a user",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateInvitationRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Invitation"}},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Basic health check",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "models.GoogleAuthURL": {"type": "object", "properties": {"auth_url": {"type": "string"}}},
        "models.RefreshRequest": {"type": "object", "required": ["refresh_token"], "properties": {"refresh_token": {"type": "string"}}},
        "models.TokenResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_in": {"type": "integer"},
                "user": {"type": "object"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string"},
                "company_id": {"type": "string"},
                "can_add_devices": {"type": "boolean"},
                "is_active": {"type": "boolean"}
            }
        },
        "models.GenerateCodeRequest": {
            "type": "object",
            "required": ["device_uid", "device_name", "subdomain"],
            "properties": {
                "device_uid": {"type": "string"},
                "device_name": {"type": "string"},
                "subdomain": {"type": "string"}
            }
        },
        "models.PairingCode": {
            "type": "object",
            "properties": {
                "device_uid": {"type": "string"},
                "device_code": {"type": "string"},
                "expires_in_minutes": {"type": "integer"}
            }
        },
        "models.LinkDeviceRequest": {"type": "object", "required": ["device_code"], "properties": {"device_code": {"type": "string"}}},
        "models.Device": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "device_uid": {"type": "string"},
                "device_name": {"type": "string"},
                "user_id": {"type": "string"},
                "company_id": {"type": "string"},
                "is_online": {"type": "boolean"},
                "is_linked": {"type": "boolean"}
            }
        },
        "models.CreateInvitationRequest": {
            "type": "object",
            "required": ["email", "role"],
            "properties": {
                "email": {"type": "string"},
                "role": {"type": "string"},
                "company_id": {"type": "string"}
            }
        },
        "models.Invitation": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "company_id": {"type": "string"},
                "status": {"type": "string"},
                "expires_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Simple Digital Signage API",
	Description:      "Users, companies, invitations and TV pairing.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
