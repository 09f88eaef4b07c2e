// Package schema holds the JSON Schemas for forecast requests and records and
// builds the OpenAPI document from them.
package schema

// Resource URLs the schemas are compiled under.
const (
	DemandRequestURL      = "forecasting://schemas/demand-request.json"
	TransactionRequestURL = "forecasting://schemas/transaction-request.json"
)

const inputDataSchema = `{
	"type": ["object", "null"],
	"description": "Filter forwarded to the history provider.",
	"additionalProperties": true
}`

const demandRequestSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"title": "DemandForecastRequest",
	"type": "object",
	"required": ["algorithm"],
	"properties": {
		"algorithm": {"type": "string", "minLength": 1, "default": "moving_average"},
		"algorithm_version": {"type": "string", "default": "v1"},
		"prediction_horizon": {"type": "number", "minimum": 0, "maximum": 2562047},
		"input_data": {
			"type": ["object", "null"],
			"properties": {
				"item_number": {"type": "string"},
				"item_id": {"type": "string"},
				"demand_history": {"description": "Embedded history is not supported yet."}
			},
			"additionalProperties": true
		}
	}
}`

const transactionRequestSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"title": "TransactionForecastRequest",
	"type": "object",
	"required": ["algorithm", "event_type"],
	"properties": {
		"algorithm": {"type": "string", "minLength": 1, "default": "poisson_process"},
		"algorithm_version": {"type": "string", "default": "v1"},
		"event_type": {"type": "string", "minLength": 1, "default": "both"},
		"prediction_horizon": {"type": "number", "minimum": 0, "maximum": 2562047, "description": "Forward window in hours."},
		"alpha": {"type": "number"},
		"beta": {"type": "number"},
		"gamma": {"type": "number"},
		"seasonality": {"type": "integer"},
		"initial_gap": {"type": "number", "description": "Seed gap in seconds for exponential smoothing."},
		"input_data": ` + inputDataSchema + `
	}
}`

const forecastRecordSchema = `{
	"title": "Forecast",
	"type": "object",
	"required": ["id", "timestamp", "forecast_type", "algorithm", "algorithm_version", "predicted_output"],
	"properties": {
		"id": {"type": "string", "format": "uuid", "readOnly": true},
		"timestamp": {"type": "string", "format": "date-time", "readOnly": true},
		"forecast_type": {"type": "string", "enum": ["demand", "transaction"], "readOnly": true},
		"input_data": {"type": ["object", "null"]},
		"algorithm": {"type": "string"},
		"algorithm_version": {"type": "string"},
		"prediction_horizon": {"type": "number"},
		"event_type": {"type": "string", "enum": ["storage", "retrieval", "both"]},
		"predicted_output": {"type": "object", "readOnly": true}
	}
}`

const errorSchema = `{
	"title": "APIError",
	"type": "object",
	"required": ["error", "code"],
	"properties": {
		"error": {"type": "string"},
		"code": {"type": "string"},
		"message": {"type": "string"},
		"request_id": {"type": "string"},
		"details": {"type": "object"}
	}
}`
