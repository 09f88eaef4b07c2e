package schema

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Version is the API version reported in the OpenAPI document.
const Version = "1.0"

func mustDecode(doc string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		panic(fmt.Sprintf("schema: invalid embedded schema: %v", err))
	}
	// $schema is implied by the OpenAPI dialect.
	delete(m, "$schema")
	return m
}

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema map[string]any) map[string]any {
	return map[string]any{"application/json": map[string]any{"schema": schema}}
}

func response(description string, schema map[string]any) map[string]any {
	r := map[string]any{"description": description}
	if schema != nil {
		r["content"] = jsonContent(schema)
	}
	return r
}

func errorResponses(codes ...string) map[string]any {
	out := make(map[string]any, len(codes))
	for _, c := range codes {
		out[c] = response("Error", ref("APIError"))
	}
	return out
}

func forecastCollection(tag, requestSchema, summary string) map[string]any {
	post := map[string]any{
		"tags":        []string{tag},
		"summary":     summary,
		"operationId": "create" + tag + "Forecast",
		"requestBody": map[string]any{"required": true, "content": jsonContent(ref(requestSchema))},
		"responses":   errorResponses("400", "413", "501", "502", "500"),
	}
	post["responses"].(map[string]any)["201"] = response("Created forecast", ref("Forecast"))
	return map[string]any{
		"get": map[string]any{
			"tags":        []string{tag},
			"summary":     "List stored " + tag + " forecasts",
			"operationId": "list" + tag + "Forecasts",
			"parameters": []any{map[string]any{
				"name": "id", "in": "query", "required": false,
				"schema": map[string]any{"type": "string"},
			}},
			"responses": map[string]any{
				"200": response("Forecasts in creation order", map[string]any{"type": "array", "items": ref("Forecast")}),
				"500": response("Error", ref("APIError")),
			},
		},
		"post": post,
	}
}

// Document builds the OpenAPI 3.1 description of the HTTP API. Request bodies
// reference the same schemas the Validator compiles.
func Document() map[string]any {
	health := func(summary string) map[string]any {
		return map[string]any{"get": map[string]any{
			"tags": []string{"health"}, "summary": summary,
			"responses": map[string]any{"200": response("OK", nil), "503": response("Not ready", nil)},
		}}
	}
	getByID := errorResponses("404", "500")
	getByID["200"] = response("Forecast", ref("Forecast"))

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":       "ForecastingAPI",
			"version":     Version,
			"description": "Demand and transaction-time forecasts over item history.",
		},
		"paths": map[string]any{
			"/health":              health("Liveness"),
			"/healthz/live":        health("Liveness"),
			"/healthz/ready":       health("Readiness, including the forecast store"),
			"/api/v1/demand/":      forecastCollection("Demand", "DemandForecastRequest", "Run and store a demand forecast"),
			"/api/v1/transaction/": forecastCollection("Transaction", "TransactionForecastRequest", "Run and store a transaction forecast"),
			"/api/v1/{forecast_type}/{id}": map[string]any{"get": map[string]any{
				"summary":     "Get one stored forecast",
				"operationId": "getForecast",
				"parameters": []any{
					map[string]any{"name": "forecast_type", "in": "path", "required": true,
						"schema": map[string]any{"type": "string", "enum": []string{"demand", "transaction"}}},
					map[string]any{"name": "id", "in": "path", "required": true, "schema": map[string]any{"type": "string"}},
				},
				"responses": getByID,
			}},
			"/api/v1/algorithms": map[string]any{"get": map[string]any{
				"summary":     "List registered algorithms per forecast family",
				"operationId": "listAlgorithms",
				"responses": map[string]any{"200": response("Algorithms", map[string]any{
					"type": "object",
					"additionalProperties": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				})},
			}},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"DemandForecastRequest":      mustDecode(demandRequestSchema),
				"TransactionForecastRequest": mustDecode(transactionRequestSchema),
				"Forecast":                   mustDecode(forecastRecordSchema),
				"APIError":                   mustDecode(errorSchema),
			},
		},
	}
}

// JSON renders the document indented.
func JSON() ([]byte, error) {
	return json.MarshalIndent(Document(), "", "    ")
}

// YAML renders the document as YAML.
func YAML() ([]byte, error) {
	return yaml.Marshal(Document())
}
