package validator

import "testing"

func TestOutputValidator(t *testing.T) {
	v, err := NewOutputValidator()
	if err != nil {
		t.Fatalf("new output validator: %v", err)
	}

	diagnostic := map[string]interface{}{
		"stage":    "parser",
		"severity": "error",
		"code":     "PARSER_UNEXPECTED_TOKEN",
		"message":  `expected ";", found "^"`,
		"span":     map[string]interface{}{"file": "bad.vd", "line": 1, "column": 34, "start": 33, "end": 34},
	}
	summary := map[string]interface{}{
		"files": 2, "compiled": 1, "cached": 0, "failed": 1, "diagnostics": 1,
		"violations": 1, "errors": 0, "warnings": 1, "info": 0,
	}
	violation := map[string]interface{}{
		"rule": "input_reg", "severity": "warning", "file": "ok.vd", "line": 2, "column": 5,
		"message": "input port 'a' is declared reg",
	}

	tests := []struct {
		name    string
		data    map[string]interface{}
		wantErr bool
	}{
		{
			name: "valid_report",
			data: map[string]interface{}{
				"files": []interface{}{
					map[string]interface{}{"path": "ok.vd", "output": "ok.v", "status": "compiled", "diagnostics": []interface{}{}},
					map[string]interface{}{"path": "bad.vd", "status": "failed", "diagnostics": []interface{}{diagnostic}},
				},
				"violations": []interface{}{violation},
				"summary":    summary,
			},
		},
		{
			name: "failed_without_diagnostics",
			data: map[string]interface{}{
				"files": []interface{}{
					map[string]interface{}{"path": "bad.vd", "status": "failed", "diagnostics": []interface{}{}},
				},
				"violations": []interface{}{},
				"summary":    summary,
			},
			wantErr: true,
		},
		{
			name: "compiled_with_diagnostics",
			data: map[string]interface{}{
				"files": []interface{}{
					map[string]interface{}{"path": "ok.vd", "status": "compiled", "diagnostics": []interface{}{diagnostic}},
				},
				"violations": []interface{}{},
				"summary":    summary,
			},
			wantErr: true,
		},
		{
			name: "unknown_status",
			data: map[string]interface{}{
				"files": []interface{}{
					map[string]interface{}{"path": "ok.vd", "status": "skipped", "diagnostics": []interface{}{}},
				},
				"violations": []interface{}{},
				"summary":    summary,
			},
			wantErr: true,
		},
		{
			name: "bad_violation_severity",
			data: map[string]interface{}{
				"files": []interface{}{},
				"violations": []interface{}{
					map[string]interface{}{"rule": "input_reg", "severity": "fatal", "file": "ok.vd", "line": 1, "column": 1, "message": "x"},
				},
				"summary": summary,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && len(v.ValidationErrors(tt.data)) == 0 {
				t.Fatalf("ValidationErrors returned nothing for invalid data")
			}
		})
	}
}
