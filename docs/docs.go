// Package docs registers the OpenAPI document served at /api/swagger.
// Regenerate with `swag init -g cmd/server/main.go`.
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
        "/posts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "List posts",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Post"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Create a post",
                "parameters": [
                    {"description": "Post", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.NewPost"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Post"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/category/{category}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "List posts by category",
                "parameters": [
                    {"enum": ["AI", "Cinema", "Cricket", "Mythology"], "type": "string", "name": "category", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Post"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Get a post",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Post"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{postId}/comments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "List comments of a post",
                "parameters": [{"type": "integer", "name": "postId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Comment"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Comment on a post",
                "parameters": [
                    {"type": "integer", "name": "postId", "in": "path", "required": true},
                    {"description": "Comment", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.NewComment"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Comment"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/bookmarks": {
            "get": {
                "produces": ["application/json"],
                "tags": ["bookmarks"],
                "summary": "List my bookmarks",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Bookmark"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/bookmarks/{postId}": {
            "post": {
                "produces": ["application/json"],
                "tags": ["bookmarks"],
                "summary": "Bookmark a post",
                "parameters": [{"type": "integer", "name": "postId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Bookmark"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Bookmark"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["bookmarks"],
                "summary": "Remove a bookmark",
                "parameters": [{"type": "integer", "name": "postId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register an account",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.credentials"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.User"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.credentials"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/logout": {
            "post": {
                "tags": ["auth"],
                "summary": "Log out",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/user": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.Bookmark": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "postId": {"type": "integer"},
                "userId": {"type": "integer"}
            }
        },
        "models.Comment": {
            "type": "object",
            "properties": {
                "authorId": {"type": "integer"},
                "content": {"type": "string"},
                "createdAt": {"type": "string"},
                "id": {"type": "integer"},
                "postId": {"type": "integer"}
            }
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "string"},
                "error": {"type": "string"},
                "fields": {"type": "array", "items": {"$ref": "#/definitions/models.FieldError"}}
            }
        },
        "models.FieldError": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "path": {"type": "string"}
            }
        },
        "models.NewComment": {
            "type": "object",
            "properties": {
                "content": {"type": "string"}
            }
        },
        "models.NewPost": {
            "type": "object",
            "properties": {
                "category": {"type": "string", "enum": ["AI", "Cinema", "Cricket", "Mythology"]},
                "content": {"type": "string"},
                "imageUrl": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "models.Post": {
            "type": "object",
            "properties": {
                "authorId": {"type": "integer"},
                "category": {"type": "string", "enum": ["AI", "Cinema", "Cricket", "Mythology"]},
                "content": {"type": "string"},
                "createdAt": {"type": "string"},
                "id": {"type": "integer"},
                "imageUrl": {"type": "string", "x-nullable": true},
                "title": {"type": "string"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "isAdmin": {"type": "boolean"},
                "username": {"type": "string"}
            }
        },
        "server.credentials": {
            "type": "object",
            "properties": {
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "CultureTech API",
	Description:      "Blogging API for AI, Cinema, Cricket and Mythology articles.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
