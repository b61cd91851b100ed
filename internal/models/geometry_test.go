package models

import (
	"database/sql/driver"
	"encoding/json"
	"testing"
)

// TestMultiPolygonImplementsInterfaces verifies MultiPolygon implements required interfaces
func TestMultiPolygonImplementsInterfaces(t *testing.T) {
	var _ driver.Valuer = MultiPolygon{}
	var _ driver.Valuer = (*MultiPolygon)(nil)

	// sql.Scanner requires a pointer receiver
	var mp MultiPolygon
	var scanner interface{} = &mp
	if _, ok := scanner.(interface{ Scan(interface{}) error }); !ok {
		t.Error("MultiPolygon does not implement sql.Scanner interface")
	}
}

// TestMultiPolygonValue tests the Value method (writing to database)
func TestMultiPolygonValue(t *testing.T) {
	tests := []struct {
		name      string
		geom      MultiPolygon
		wantNil   bool
		wantError bool
	}{
		{
			name: "valid multipolygon",
			geom: MultiPolygon{
				Coordinates: [][][][2]float64{
					{{{126.88, 37.57}, {126.89, 37.57}, {126.89, 37.58}, {126.88, 37.58}, {126.88, 37.57}}},
				},
				SRID: 4326,
			},
			wantNil:   false,
			wantError: false,
		},
		{
			name:      "empty multipolygon",
			geom:      MultiPolygon{},
			wantNil:   true,
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := tt.geom.Value()

			if tt.wantError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantNil && val != nil {
				t.Errorf("expected nil value, got %v", val)
			}
			if !tt.wantNil && val == nil {
				t.Error("expected non-nil value, got nil")
			}

			// For a valid multipolygon, verify it is valid GeoJSON
			if !tt.wantNil && !tt.wantError && val != nil {
				var geom map[string]interface{}
				if err := json.Unmarshal([]byte(val.(string)), &geom); err != nil {
					t.Errorf("Value() did not return valid JSON: %v", err)
				}
				if geom["type"] != "MultiPolygon" {
					t.Errorf("expected type=MultiPolygon, got %v", geom["type"])
				}
			}
		})
	}
}

// TestMultiPolygonScan tests the Scan method (reading from database)
func TestMultiPolygonScan(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantError bool
		wantNil   bool
	}{
		{
			name:      "nil value",
			input:     nil,
			wantError: false,
			wantNil:   true,
		},
		{
			name:      "valid GeoJSON",
			input:     []byte(`{"type":"MultiPolygon","coordinates":[[[[126.88,37.57],[126.89,37.57],[126.89,37.58],[126.88,37.58],[126.88,37.57]]]]}`),
			wantError: false,
			wantNil:   false,
		},
		{
			name:      "invalid JSON",
			input:     []byte(`{invalid}`),
			wantError: true,
			wantNil:   false,
		},
		{
			name:      "wrong type",
			input:     []byte(`{"type":"Point","coordinates":[0,0]}`),
			wantError: true,
			wantNil:   false,
		},
		{
			name:      "unsupported input type",
			input:     "not a byte slice",
			wantError: true,
			wantNil:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mp MultiPolygon
			err := mp.Scan(tt.input)

			if tt.wantError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantError && !tt.wantNil {
				if len(mp.Coordinates) == 0 {
					t.Error("expected coordinates to be populated")
				}
				if mp.SRID != 4326 {
					t.Errorf("expected SRID 4326, got %d", mp.SRID)
				}
			}
		})
	}
}

// TestMultiPolygonJSON tests JSON marshaling/unmarshaling
func TestMultiPolygonJSON(t *testing.T) {
	original := MultiPolygon{
		Coordinates: [][][][2]float64{
			{{{126.88, 37.57}, {126.89, 37.57}, {126.89, 37.58}, {126.88, 37.58}, {126.88, 37.57}}},
		},
		SRID: 4326,
	}

	// Marshal to JSON
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	// Unmarshal back
	var decoded MultiPolygon
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	// Verify structure
	if len(decoded.Coordinates) != len(original.Coordinates) {
		t.Errorf("polygon count mismatch: got %d, want %d",
			len(decoded.Coordinates), len(original.Coordinates))
	}
	if decoded.SRID != original.SRID {
		t.Errorf("SRID mismatch: got %d, want %d", decoded.SRID, original.SRID)
	}
}
