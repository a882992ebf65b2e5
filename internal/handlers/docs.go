package handlers

import (
	"encoding/json"
	"net/http"
)

type object = map[string]interface{}

func queryParam(name, description, typ string, required bool) object {
	return object{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    required,
		"schema":      object{"type": typ},
	}
}

func pathParam(name, description, typ string) object {
	return object{
		"name":        name,
		"in":          "path",
		"description": description,
		"required":    true,
		"schema":      object{"type": typ},
	}
}

func jsonResponse(description string, schema object) object {
	return object{
		"description": description,
		"content":     object{"application/json": object{"schema": schema}},
	}
}

func mediaResponse(description, mediaType string) object {
	return object{
		"description": description,
		"content":     object{mediaType: object{"schema": object{"type": "string", "format": "binary"}}},
	}
}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

var (
	errorResponse = jsonResponse("Error", ref("Error"))
	viewResponse  = jsonResponse("Current view of the session", ref("View"))
	noGraph       = object{"description": "Nothing to plot"}
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the LST map API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "LST Map Platform API",
			"description": "Daily land-surface-temperature rasters over the continental US, rendered as heatmaps with per-pixel time series probing",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": object{
			"/api/days": object{"get": object{
				"summary":   "List the day range",
				"responses": object{"200": jsonResponse("Days with their labels and load status", ref("Days"))},
			}},
			"/api/days/{day}/heatmap.png": object{"get": object{
				"summary":    "Heatmap canvas of one day",
				"parameters": []object{pathParam("day", "Julian day, 1 is January 1", "integer")},
				"responses": object{
					"200": mediaResponse("Heatmap; blank when the day did not load", "image/png"),
					"404": errorResponse,
					"503": errorResponse,
				},
			}},
			"/api/daily-means": object{"get": object{
				"summary": "Mean LST of every loaded day",
				"responses": object{
					"200": jsonResponse("Rows as in daily_mean_LST_US.json", object{
						"type":  "array",
						"items": ref("DailyMean"),
					}),
					"503": errorResponse,
				},
			}},
			"/api/daily-means.svg": object{"get": object{
				"summary": "Daily mean line graph",
				"parameters": []object{
					queryParam("day", "Day to highlight (default 1)", "integer", false),
					queryParam("width", "Graph width in pixels (default 960)", "integer", false),
				},
				"responses": object{
					"200": mediaResponse("Line graph", "image/svg+xml"),
					"204": noGraph,
					"400": errorResponse,
					"503": errorResponse,
				},
			}},
			"/api/legend.png": object{"get": object{
				"summary":   "Colour legend",
				"responses": object{"200": mediaResponse("Legend", "image/png")},
			}},
			"/api/overlay.png": object{"get": object{
				"summary":   "Boundary and graticule overlay",
				"responses": object{"200": mediaResponse("Transparent overlay", "image/png")},
			}},
			"/api/probe": object{"get": object{
				"summary": "Nearest-sample time series at a location",
				"parameters": []object{
					queryParam("lon", "Longitude in degrees", "number", true),
					queryParam("lat", "Latitude in degrees", "number", true),
				},
				"responses": object{
					"200": jsonResponse("One value per day, null where no data", ref("Series")),
					"400": errorResponse,
					"503": errorResponse,
				},
			}},
			"/api/sessions": object{"post": object{
				"summary":   "Start a probe session",
				"responses": object{"201": viewResponse, "503": errorResponse},
			}},
			"/api/sessions/{id}": object{
				"get": object{
					"summary":    "Current view of a session",
					"parameters": []object{pathParam("id", "Session id", "string")},
					"responses":  object{"200": viewResponse, "404": errorResponse},
				},
				"delete": object{
					"summary":    "End a session",
					"parameters": []object{pathParam("id", "Session id", "string")},
					"responses":  object{"204": object{"description": "Deleted"}, "404": errorResponse},
				},
			},
			"/api/sessions/{id}/events": object{"post": object{
				"summary":     "Apply a pointer or day control event",
				"parameters":  []object{pathParam("id", "Session id", "string")},
				"requestBody": object{"content": object{"application/json": object{"schema": ref("Event")}}},
				"responses": object{
					"200": viewResponse,
					"400": errorResponse,
					"404": errorResponse,
				},
			}},
			"/api/sessions/{id}/pixel.svg": object{"get": object{
				"summary": "Per-pixel line graph of the probed location",
				"parameters": []object{
					pathParam("id", "Session id", "string"),
					queryParam("width", "Graph width in pixels (default 960)", "integer", false),
				},
				"responses": object{
					"200": mediaResponse("Line graph", "image/svg+xml"),
					"204": noGraph,
					"404": errorResponse,
				},
			}},
			"/api/sessions/{id}/ws": object{"get": object{
				"summary":     "Websocket event stream",
				"description": "Send Event frames, receive {view, error} frames. The first frame is the current view.",
				"parameters":  []object{pathParam("id", "Session id", "string")},
				"responses":   object{"101": object{"description": "Switching protocols"}, "404": errorResponse},
			}},
			"/health": object{"get": object{
				"summary":   "Health check",
				"responses": object{"200": jsonResponse("API is healthy", object{"type": "object"})},
			}},
			"/ready": object{"get": object{
				"summary":   "Readiness check",
				"responses": object{"200": jsonResponse("All days settled", object{"type": "object"}), "503": errorResponse},
			}},
			"/metrics": object{"get": object{
				"summary": "Prometheus metrics",
				"responses": object{"200": object{
					"description": "Prometheus metrics in text format",
					"content":     object{"text/plain": object{"schema": object{"type": "string"}}},
				}},
			}},
		},
		"components": object{"schemas": object{
			"Error": object{"type": "object", "properties": object{
				"error":   object{"type": "string"},
				"message": object{"type": "string"},
				"code":    object{"type": "integer"},
			}},
			"Days": object{"type": "object", "properties": object{
				"year":        object{"type": "integer"},
				"days":        object{"type": "integer"},
				"loaded_days": object{"type": "integer"},
				"entries": object{"type": "array", "items": object{"type": "object", "properties": object{
					"day":    object{"type": "integer"},
					"key":    object{"type": "string", "example": "2024-001"},
					"label":  object{"type": "string", "example": "January 1, 2024"},
					"loaded": object{"type": "boolean"},
				}}},
			}},
			"DailyMean": object{"type": "object", "properties": object{
				"date":     object{"type": "string", "example": "2024-001"},
				"mean_LST": object{"type": "number", "nullable": true},
			}},
			"Location": object{"type": "object", "properties": object{
				"lon": object{"type": "number"},
				"lat": object{"type": "number"},
			}},
			"Series": object{"type": "object", "properties": object{
				"location": ref("Location"),
				"values":   object{"type": "array", "items": object{"type": "number", "nullable": true}},
			}},
			"Event": object{"type": "object", "required": []string{"type"}, "properties": object{
				"type": object{"type": "string", "enum": []string{"move", "leave", "click", "click_outside", "slider", "dropdown"}},
				"x":    object{"type": "number", "description": "Canvas x for move and click"},
				"y":    object{"type": "number", "description": "Canvas y for move and click"},
				"day":  object{"type": "integer", "description": "Day for slider and dropdown"},
			}},
			"View": object{"type": "object", "properties": object{
				"session_id":           object{"type": "string"},
				"state":                object{"type": "string", "enum": []string{"hovering", "locked"}},
				"location":             ref("Location"),
				"day":                  object{"type": "integer"},
				"date_label":           object{"type": "string"},
				"slider_day":           object{"type": "integer"},
				"dropdown_day":         object{"type": "integer"},
				"heatmap_day":          object{"type": "integer"},
				"heatmap_loaded":       object{"type": "boolean"},
				"highlighted_mean_day": object{"type": "integer"},
				"panel_title":          object{"type": "string"},
				"tooltip":              object{"type": "object"},
				"pixel_series":         ref("Series"),
				"pixel_series_day":     object{"type": "integer"},
				"revision":             object{"type": "integer"},
			}},
		}},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
