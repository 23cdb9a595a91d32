package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "BrightClass API",
        "description": "School finance and attendance platform",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, tokens, and session management"},
        {"name": "Attendance", "description": "Bulk marking, rosters, and listings"},
        {"name": "Fees", "description": "Fee resolution and generation"},
        {"name": "FeeCatalog", "description": "Categories, pricing windows, and areas"},
        {"name": "Payments", "description": "Recording, verification, and receipts"},
        {"name": "Reports", "description": "Asynchronous CSV exports"},
        {"name": "Schools", "description": "Schools and settings"},
        {"name": "Students", "description": "Student records"},
        {"name": "Classes", "description": "Classes and sections"},
        {"name": "Expenses", "description": "Expense tracking"},
        {"name": "Holidays", "description": "Holiday calendar"},
        {"name": "Users", "description": "Staff accounts"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/attendance/bulk": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark attendance in bulk",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkAttendanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-entry manifest", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Future date or invalid payload"}
                }
            }
        },
        "/attendance/students/{classId}/{sectionId}": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Class roster with attendance and absence streaks",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "sectionId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/generate": {
            "post": {
                "tags": ["Fees"],
                "summary": "Generate a student fee",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateFeeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already generated or ambiguous pricing"}
                }
            }
        },
        "/fees/generate-class": {
            "post": {
                "tags": ["Fees"],
                "summary": "Queue fee generation for a class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateClassFeesRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments": {
            "post": {
                "tags": ["Payments"],
                "summary": "Record a payment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Payment mode not configured"}
                }
            },
            "get": {
                "tags": ["Payments"],
                "summary": "List payments",
                "parameters": [
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "verified", "in": "query", "type": "boolean"},
                    {"name": "from_date", "in": "query", "type": "string"},
                    {"name": "to_date", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments/{id}/verify": {
            "put": {
                "tags": ["Payments"],
                "summary": "Verify a payment (idempotent)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Caller is not an administrator"}
                }
            }
        },
        "/payments/{id}/receipt": {
            "get": {
                "tags": ["Payments"],
                "summary": "Download receipt PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF stream"}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a report export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished report",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV stream"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "BulkAttendanceRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "entries": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/BulkAttendanceEntry"}
                }
            },
            "required": ["date", "entries"]
        },
        "BulkAttendanceEntry": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "status": {"type": "string", "enum": ["PRESENT", "ABSENT"]},
                "remarks": {"type": "string"}
            },
            "required": ["student_id", "status"]
        },
        "GenerateFeeRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "month": {"type": "integer"},
                "calendar_year": {"type": "integer"},
                "new_admission": {"type": "boolean"},
                "discount": {"type": "number"},
                "discount_reason": {"type": "string"}
            },
            "required": ["student_id", "month", "calendar_year"]
        },
        "GenerateClassFeesRequest": {
            "type": "object",
            "properties": {
                "class_id": {"type": "string"},
                "section_id": {"type": "string"},
                "month": {"type": "integer"},
                "calendar_year": {"type": "integer"}
            },
            "required": ["class_id", "month", "calendar_year"]
        },
        "CreatePaymentRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "generated_fee_id": {"type": "string"},
                "amount_paid": {"type": "number"},
                "payment_date": {"type": "string"},
                "payment_mode": {"type": "string"},
                "reference_number": {"type": "string"},
                "remarks": {"type": "string"}
            },
            "required": ["student_id", "generated_fee_id", "amount_paid", "payment_date", "payment_mode"]
        },
        "ReportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["PAYMENTS", "ATTENDANCE"]},
                "from_date": {"type": "string"},
                "to_date": {"type": "string"},
                "payment_mode": {"type": "string"},
                "class_id": {"type": "string"},
                "section_id": {"type": "string"}
            },
            "required": ["type"]
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
