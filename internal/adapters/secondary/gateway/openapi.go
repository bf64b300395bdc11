// Package gateway renders the OpenAPI 2.0 document the managed API gateway
// sidecar is configured from.
package gateway

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"price-prediction-service/internal/core/domain"
)

const apiKeyScheme = "api_key"

type document struct {
	Swagger             string                    `yaml:"swagger"`
	Info                info                      `yaml:"info"`
	Host                string                    `yaml:"host"`
	XGoogleEndpoints    []endpoint                `yaml:"x-google-endpoints"`
	Schemes             []string                  `yaml:"schemes"`
	Consumes            []string                  `yaml:"consumes"`
	Produces            []string                  `yaml:"produces"`
	Paths               map[string]pathItem       `yaml:"paths"`
	Definitions         map[string]*schema        `yaml:"definitions"`
	SecurityDefinitions map[string]securityScheme `yaml:"securityDefinitions"`
}

type info struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

type endpoint struct {
	Name      string `yaml:"name"`
	AllowCors bool   `yaml:"allowCors"`
}

type pathItem struct {
	Get  *operation `yaml:"get,omitempty"`
	Post *operation `yaml:"post,omitempty"`
}

type operation struct {
	Summary     string                `yaml:"summary"`
	OperationID string                `yaml:"operationId"`
	Produces    []string              `yaml:"produces,omitempty"`
	Parameters  []parameter           `yaml:"parameters,omitempty"`
	Responses   map[string]response   `yaml:"responses"`
	Security    []map[string][]string `yaml:"security,omitempty"`
}

type parameter struct {
	Name     string  `yaml:"name"`
	In       string  `yaml:"in"`
	Required bool    `yaml:"required"`
	Schema   *schema `yaml:"schema"`
}

type response struct {
	Description string  `yaml:"description"`
	Schema      *schema `yaml:"schema,omitempty"`
}

type schema struct {
	Ref                  string             `yaml:"$ref,omitempty"`
	Type                 string             `yaml:"type,omitempty"`
	Format               string             `yaml:"format,omitempty"`
	Enum                 []string           `yaml:"enum,omitempty"`
	Required             []string           `yaml:"required,omitempty"`
	Properties           map[string]*schema `yaml:"properties,omitempty"`
	AdditionalProperties *schema            `yaml:"additionalProperties,omitempty"`
}

type securityScheme struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
	In   string `yaml:"in"`
}

// OpenAPIRenderer implements GatewayConfigRenderer.
type OpenAPIRenderer struct {
	// APIVersion is published as info.version.
	APIVersion string
}

func NewOpenAPIRenderer(apiVersion string) *OpenAPIRenderer {
	if apiVersion == "" {
		apiVersion = "1.0.0"
	}
	return &OpenAPIRenderer{APIVersion: apiVersion}
}

func (r *OpenAPIRenderer) Render(release *domain.Release) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r.build(release)); err != nil {
		return nil, fmt.Errorf("encode openapi document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode openapi document: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *OpenAPIRenderer) build(release *domain.Release) *document {
	host := release.GatewayHost()
	number := &schema{Type: "number", Format: "double"}

	return &document{
		Swagger: "2.0",
		Info: info{
			Title:       release.Name,
			Description: "Prediction API for " + release.Name,
			Version:     r.APIVersion,
		},
		Host:             host,
		XGoogleEndpoints: []endpoint{{Name: host, AllowCors: false}},
		Schemes:          []string{"http"},
		Consumes:         []string{"application/json"},
		Produces:         []string{"application/json"},
		Paths: map[string]pathItem{
			"/": {
				Get: &operation{
					Summary:     "Liveness check",
					OperationID: "health",
					Produces:    []string{"text/plain"},
					Responses: map[string]response{
						"200": {Description: "Server is ready", Schema: &schema{Type: "string"}},
					},
				},
			},
			"/predict": {
				Post: &operation{
					Summary:     "Predict a value from one feature row",
					OperationID: "predict",
					Parameters: []parameter{{
						Name:     "features",
						In:       "body",
						Required: true,
						Schema:   &schema{Ref: "#/definitions/FeatureVector"},
					}},
					Responses: map[string]response{
						"200": {Description: "Prediction", Schema: &schema{Ref: "#/definitions/PredictionResult"}},
						"400": {Description: "Input does not match the model schema", Schema: &schema{Ref: "#/definitions/PredictionResult"}},
					},
					Security: []map[string][]string{{apiKeyScheme: {}}},
				},
			},
		},
		Definitions: map[string]*schema{
			"FeatureVector":    featureSchema(release.ModelFeatures, number),
			"PredictionResult": resultSchema(number),
		},
		SecurityDefinitions: map[string]securityScheme{
			apiKeyScheme: {Type: "apiKey", Name: "key", In: "query"},
		},
	}
}

func featureSchema(features []string, number *schema) *schema {
	if len(features) == 0 {
		return &schema{Type: "object", AdditionalProperties: number}
	}

	props := make(map[string]*schema, len(features))
	for _, f := range features {
		props[f] = number
	}
	return &schema{
		Type:       "object",
		Required:   append([]string(nil), features...),
		Properties: props,
	}
}

func resultSchema(number *schema) *schema {
	return &schema{
		Type:     "object",
		Required: []string{"status", "predict"},
		Properties: map[string]*schema{
			"status":  {Type: "string", Enum: []string{string(domain.PredictionStatusSuccess), string(domain.PredictionStatusError)}},
			"predict": number,
			"error": {
				Type: "object",
				Properties: map[string]*schema{
					"code":    {Type: "string"},
					"message": {Type: "string"},
				},
			},
		},
	}
}
