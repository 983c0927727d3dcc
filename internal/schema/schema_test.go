package schema

import (
	"strings"
	"testing"
)

func TestAnalysisResult(t *testing.T) {
	ok := `{"pages":[{"page_number":1,"text":"Hi","tokens":[{"text":"Hi","box":[0.1,0.1,0.2,0.15]}]}]}`
	if err := AnalysisResult.Validate([]byte(ok)); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}

	bad := []string{
		`{"text":"no pages"}`,
		`{"pages":[{"page_number":0,"tokens":[]}]}`,
		`{"pages":[{"page_number":1,"tokens":[{"text":"x","box":[0,0,2,1]}]}]}`,
		`{"pages":[{"page_number":1,"tokens":[{"text":"x","box":[0,0,1]}]}]}`,
		`not json`,
	}
	for _, b := range bad {
		if err := AnalysisResult.Validate([]byte(b)); err == nil {
			t.Errorf("expected rejection of %s", b)
		}
	}
}

func TestLabelingResponseDecode(t *testing.T) {
	var out struct {
		Predictions []struct {
			TokenID  int    `json:"token_id"`
			Label    string `json:"label"`
			Position int    `json:"position"`
		} `json:"predictions"`
	}
	data := `{"predictions":[{"token_id":7,"label":"B-HEADER","position":0}]}`
	if err := LabelingResponse.Decode([]byte(data), &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out.Predictions) != 1 || out.Predictions[0].Label != "B-HEADER" {
		t.Errorf("decoded %+v", out)
	}

	err := LabelingResponse.Decode([]byte(`{"predictions":[{"token_id":"x","label":"O","position":0}]}`), &out)
	if err == nil || !strings.Contains(err.Error(), "labeling_response.schema.json") {
		t.Errorf("expected schema error naming the schema, got %v", err)
	}
}

func TestCompileRejectsBadSchema(t *testing.T) {
	if _, err := Compile("broken.json", []byte(`{"type": 12}`)); err == nil {
		t.Error("expected compile error")
	}
	if AnalysisResult.Raw() == "" || LabelingResponse.Raw() == "" {
		t.Error("Raw should return embedded schema source")
	}
}
