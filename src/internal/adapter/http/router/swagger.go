package router

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

func registerSwaggerRoutes(router *mux.Router) {
	router.HandleFunc("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	}).Methods(http.MethodGet)

	router.HandleFunc("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	}).Methods(http.MethodGet)

	router.HandleFunc("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	}).Methods(http.MethodGet)
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>ATM Simulator API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "ATM Simulator API",
    "version": "1.0.0",
    "description": "Session based ATM. The atm_session cookie is issued on first contact and must be sent back on every call."
  },
  "paths": {
    "/api/login": {
      "post": {
        "summary": "Log in with the session PIN or the admin password",
        "security": [{"SessionCookie": []}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {"$ref": "#/components/schemas/PinRequest"}
            }
          }
        },
        "responses": {
          "200": {
            "description": "Login result; success is false for a rejected credential",
            "content": {
              "application/json": {
                "schema": {
                  "type": "object",
                  "properties": {
                    "success": {"type": "boolean"},
                    "is_admin": {"type": "boolean"},
                    "message": {"type": "string"},
                    "transaction_count": {"type": "integer"},
                    "balance": {"type": "number", "example": 123.45}
                  }
                }
              }
            }
          },
          "400": {"description": "Invalid request body"}
        }
      }
    },
    "/api/balance": {
      "get": {
        "summary": "Current balance of the logged in customer",
        "security": [{"SessionCookie": []}],
        "responses": {
          "200": {
            "description": "Balance",
            "content": {
              "application/json": {
                "schema": {
                  "type": "object",
                  "properties": {
                    "balance": {"type": "number", "example": 123.45}
                  }
                }
              }
            }
          },
          "401": {"$ref": "#/components/responses/NotAuthorized"}
        }
      }
    },
    "/api/withdraw": {
      "post": {
        "summary": "Withdraw a whole amount in multiples of 10",
        "security": [{"SessionCookie": []}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["amount"],
                "properties": {
                  "amount": {"oneOf": [{"type": "string"}, {"type": "number"}], "example": "50"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {
            "description": "Withdrawal result; success is false with a message when the amount is rejected",
            "content": {
              "application/json": {
                "schema": {
                  "type": "object",
                  "properties": {
                    "success": {"type": "boolean"},
                    "message": {"type": "string"},
                    "balance": {"type": "number"},
                    "transaction": {"$ref": "#/components/schemas/Transaction"}
                  }
                }
              }
            }
          },
          "400": {"description": "Invalid request body"},
          "401": {"$ref": "#/components/responses/NotAuthorized"},
          "500": {"description": "Ledger unavailable"}
        }
      }
    },
    "/api/change-pin": {
      "post": {
        "summary": "Advance the three step PIN change",
        "description": "Step 0 expects the current PIN, step 1 the new PIN, step 2 the confirmation.",
        "security": [{"SessionCookie": []}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {"$ref": "#/components/schemas/PinRequest"}
            }
          }
        },
        "responses": {
          "200": {
            "description": "Step result",
            "content": {
              "application/json": {
                "schema": {
                  "type": "object",
                  "properties": {
                    "success": {"type": "boolean"},
                    "step": {"type": "integer", "enum": [0, 1, 2]},
                    "message": {"type": "string"},
                    "complete": {"type": "boolean"}
                  }
                }
              }
            }
          },
          "400": {"description": "Invalid request body"},
          "401": {"$ref": "#/components/responses/NotAuthorized"}
        }
      }
    },
    "/api/transactions": {
      "get": {
        "summary": "Full transaction history in chronological order",
        "security": [{"SessionCookie": []}],
        "responses": {
          "200": {
            "description": "Formatted ledger lines",
            "content": {
              "application/json": {
                "schema": {
                  "type": "object",
                  "properties": {
                    "transactions": {"type": "array", "items": {"type": "string"}},
                    "count": {"type": "integer"}
                  }
                }
              }
            }
          },
          "401": {"$ref": "#/components/responses/NotAuthorized"}
        }
      }
    },
    "/api/logout": {
      "post": {
        "summary": "Discard the session",
        "security": [{"SessionCookie": []}],
        "responses": {
          "200": {"$ref": "#/components/responses/Message"}
        }
      }
    },
    "/api/reset-pin-change": {
      "post": {
        "summary": "Abandon a PIN change in progress",
        "security": [{"SessionCookie": []}],
        "responses": {
          "200": {"description": "Always succeeds"}
        }
      }
    },
    "/debug": {
      "get": {
        "summary": "Session snapshot and raw ledger (debug mode only)",
        "security": [{"BasicAuth": []}],
        "responses": {
          "200": {"description": "Debug snapshot"},
          "401": {"description": "Unauthorized"},
          "403": {"description": "Debug mode disabled"}
        }
      }
    },
    "/reset-data": {
      "post": {
        "summary": "Clear the session and the ledger (debug mode only)",
        "security": [{"BasicAuth": []}],
        "responses": {
          "200": {"$ref": "#/components/responses/Message"},
          "401": {"description": "Unauthorized"},
          "403": {"description": "Not available in production"}
        }
      }
    },
    "/healthz": {
      "get": {
        "summary": "Liveness probe",
        "responses": {
          "200": {"description": "Service is up"}
        }
      }
    }
  },
  "components": {
    "schemas": {
      "PinRequest": {
        "type": "object",
        "required": ["pin"],
        "properties": {
          "pin": {"type": "string", "example": "1234"}
        }
      },
      "Transaction": {
        "type": "object",
        "properties": {
          "timestamp": {"type": "string", "example": "2024-01-02 15:04:05"},
          "type": {"type": "string", "example": "withdrawal"},
          "amount": {"type": "integer", "example": 50},
          "balance_after": {"type": "number", "example": 73.45},
          "formatted": {"type": "string", "example": "2024-01-02 15:04:05 | Withdrawal £50.00 | Balance £73.45"}
        }
      }
    },
    "responses": {
      "NotAuthorized": {
        "description": "Not logged in, or an admin session",
        "content": {
          "application/json": {
            "schema": {
              "type": "object",
              "properties": {
                "error": {"type": "string", "example": "Not authorized"}
              }
            }
          }
        }
      },
      "Message": {
        "description": "Success with a message",
        "content": {
          "application/json": {
            "schema": {
              "type": "object",
              "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"}
              }
            }
          }
        }
      }
    },
    "securitySchemes": {
      "SessionCookie": {
        "type": "apiKey",
        "in": "cookie",
        "name": "atm_session"
      },
      "BasicAuth": {
        "type": "http",
        "scheme": "basic"
      }
    }
  }
}`
