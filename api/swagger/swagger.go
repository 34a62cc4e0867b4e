package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Site Requisition API",
        "description": "Site material requisition, approval and stock ledger service",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "Requisitions", "description": "Material requisition lifecycle"},
        {"name": "Stock", "description": "Stock ledger and movements"},
        {"name": "Catalog", "description": "Materials, units, stores and sites"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requisitions": {
            "get": {
                "tags": ["Requisitions"],
                "summary": "List requisitions",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "siteId", "in": "query", "type": "string"},
                    {"name": "requestedBy", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Requisitions"],
                "summary": "Create a draft requisition",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRequisitionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requisitions/{id}": {
            "get": {
                "tags": ["Requisitions"],
                "summary": "Get a requisition with its items and approvals",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requisitions/{id}/submit": {
            "post": {
                "tags": ["Requisitions"],
                "summary": "Submit a draft into the approval chain",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Stale status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requisitions/{id}/approve": {
            "post": {
                "tags": ["Requisitions"],
                "summary": "Approve at the caller's review level",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requisitions/{id}/reject": {
            "post": {
                "tags": ["Requisitions"],
                "summary": "Reject with a mandatory reason",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requisitions/{id}/modify": {
            "post": {
                "tags": ["Requisitions"],
                "summary": "Edit, add or remove lines during review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ModifyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requisitions/{id}/issue": {
            "post": {
                "tags": ["Requisitions"],
                "summary": "Issue materials against approved quantities",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IssueRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Insufficient stock", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requisitions/{id}/receive": {
            "post": {
                "tags": ["Requisitions"],
                "summary": "Confirm receipt of every outstanding issued quantity",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReceiveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Receipt mismatch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stock": {
            "get": {
                "tags": ["Stock"],
                "summary": "List stock rows",
                "parameters": [
                    {"name": "storeId", "in": "query", "type": "string"},
                    {"name": "materialId", "in": "query", "type": "string"},
                    {"name": "alertOnly", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stock/entries": {
            "post": {
                "tags": ["Stock"],
                "summary": "Record a goods received note entry",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StockEntryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stock/adjust": {
            "post": {
                "tags": ["Stock"],
                "summary": "Apply a signed stock correction",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StockAdjustRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stock/alerts": {
            "get": {
                "tags": ["Stock"],
                "summary": "List stock rows with a raised low-stock alert",
                "parameters": [
                    {"name": "storeId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stock/movements": {
            "get": {
                "tags": ["Stock"],
                "summary": "List ledger movements",
                "parameters": [
                    {"name": "storeId", "in": "query", "type": "string"},
                    {"name": "materialId", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "sourceType", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stock/{id}/threshold": {
            "put": {
                "tags": ["Stock"],
                "summary": "Set or clear the low stock threshold",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ThresholdRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stock/{id}/acknowledge": {
            "post": {
                "tags": ["Stock"],
                "summary": "Acknowledge a low stock alert",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/catalog/materials": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List materials",
                "parameters": [
                    {"name": "categoryId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/catalog/stores": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List stores",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RefreshRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "CreateRequisitionRequest": {
            "type": "object",
            "required": ["siteId", "items"],
            "properties": {
                "siteId": {"type": "string"},
                "notes": {"type": "string"},
                "items": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/RequisitionLine"}
                }
            }
        },
        "RequisitionLine": {
            "type": "object",
            "required": ["materialId", "unitId", "qtyRequested"],
            "properties": {
                "materialId": {"type": "string"},
                "unitId": {"type": "string"},
                "qtyRequested": {"type": "string"}
            }
        },
        "ApproveRequest": {
            "type": "object",
            "properties": {
                "comment": {"type": "string"},
                "items": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "itemId": {"type": "string"},
                            "qtyApproved": {"type": "string"}
                        }
                    }
                }
            }
        },
        "RejectRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "ModifyRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string"},
                "edits": {"type": "array", "items": {"type": "object"}},
                "adds": {"type": "array", "items": {"type": "object"}},
                "removals": {"type": "array", "items": {"type": "string"}}
            }
        },
        "IssueRequest": {
            "type": "object",
            "required": ["lines"],
            "properties": {
                "notes": {"type": "string"},
                "lines": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "itemId": {"type": "string"},
                            "storeId": {"type": "string"},
                            "qty": {"type": "string"}
                        }
                    }
                }
            }
        },
        "ReceiveRequest": {
            "type": "object",
            "required": ["lines"],
            "properties": {
                "lines": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "itemId": {"type": "string"},
                            "qty": {"type": "string"}
                        }
                    }
                }
            }
        },
        "StockEntryRequest": {
            "type": "object",
            "required": ["storeId", "materialId", "quantity"],
            "properties": {
                "storeId": {"type": "string"},
                "materialId": {"type": "string"},
                "quantity": {"type": "string"},
                "unitPrice": {"type": "string"},
                "grnNumber": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "StockAdjustRequest": {
            "type": "object",
            "required": ["storeId", "materialId", "quantity", "reason"],
            "properties": {
                "storeId": {"type": "string"},
                "materialId": {"type": "string"},
                "quantity": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "ThresholdRequest": {
            "type": "object",
            "properties": {
                "threshold": {"type": "string"}
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
