package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decode(t *testing.T, body string) any {
	t.Helper()
	var doc any
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	return doc
}

func TestValidator_Transaction(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "minimal", body: `{"algorithm":"poisson_process","event_type":"both"}`},
		{name: "full", body: `{"algorithm":"holt_winters","event_type":"storage","prediction_horizon":24,"alpha":0.5,"seasonality":3,"input_data":{"item_id":"7"}}`},
		{name: "extra fields kept", body: `{"algorithm":"a","event_type":"b","id":"ignored"}`},
		{name: "missing event type", body: `{"algorithm":"poisson_process"}`, wantErr: true},
		{name: "empty algorithm", body: `{"algorithm":"","event_type":"both"}`, wantErr: true},
		{name: "negative horizon", body: `{"algorithm":"a","event_type":"both","prediction_horizon":-1}`, wantErr: true},
		{name: "largest horizon", body: `{"algorithm":"a","event_type":"both","prediction_horizon":2562047}`},
		{name: "horizon beyond duration range", body: `{"algorithm":"a","event_type":"both","prediction_horizon":1e7}`, wantErr: true},
		{name: "fractional seasonality", body: `{"algorithm":"a","event_type":"both","seasonality":2.5}`, wantErr: true},
		{name: "input data not an object", body: `{"algorithm":"a","event_type":"both","input_data":[1]}`, wantErr: true},
		{name: "not an object", body: `[]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Transaction(decode(t, tt.body))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDocument)
			var de *DocumentError
			require.True(t, errors.As(err, &de))
			assert.NotEmpty(t, de.Problems)
		})
	}
}

func TestValidator_Demand(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	assert.NoError(t, v.Demand(decode(t, `{"algorithm":"moving_average","input_data":{"item_number":"A-1"}}`)))
	assert.NoError(t, v.Demand(decode(t, `{"algorithm":"moving_average","input_data":null}`)))
	assert.ErrorIs(t, v.Demand(decode(t, `{"input_data":{}}`)), ErrInvalidDocument)
	assert.ErrorIs(t, v.Demand(decode(t, `{"algorithm":"moving_average","input_data":{"item_id":5}}`)), ErrInvalidDocument)
	assert.ErrorIs(t, v.Demand(decode(t, `{"algorithm":"moving_average","prediction_horizon":1e9}`)), ErrInvalidDocument)
}

func TestDocument_JSONAndYAMLAgree(t *testing.T) {
	raw, err := JSON()
	require.NoError(t, err)
	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(raw, &fromJSON))

	rawYAML, err := YAML()
	require.NoError(t, err)
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(rawYAML, &fromYAML))

	for _, doc := range []map[string]any{fromJSON, fromYAML} {
		assert.Equal(t, "3.1.0", doc["openapi"])
		paths, ok := doc["paths"].(map[string]any)
		require.True(t, ok)
		for _, p := range []string{"/health", "/healthz/ready", "/api/v1/demand/", "/api/v1/transaction/", "/api/v1/{forecast_type}/{id}"} {
			assert.Contains(t, paths, p)
		}
		components := doc["components"].(map[string]any)["schemas"].(map[string]any)
		assert.Contains(t, components, "TransactionForecastRequest")
		assert.NotContains(t, components["TransactionForecastRequest"], "$schema")
	}
}

func TestDocument_RequestSchemasCompile(t *testing.T) {
	// The document embeds the validator's schemas; both must stay loadable.
	_, err := NewValidator()
	require.NoError(t, err)
	doc := Document()
	req := doc["components"].(map[string]any)["schemas"].(map[string]any)["DemandForecastRequest"].(map[string]any)
	assert.Equal(t, []any{"algorithm"}, req["required"])
}
