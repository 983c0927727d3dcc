package labeling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

func testDoc() *docmodel.MergedDocument {
	doc := docmodel.NewMergedDocument()
	doc.Pages = []docmodel.Page{
		{Number: 1, Tokens: []docmodel.Token{
			{Text: "Market", Box: docmodel.RectPoly(0.1, 0.1, 0.2, 0.12)},
			{Text: "ghost"}, // no box
			{Text: "size", Box: docmodel.RectPoly(0.25, 0.1, 0.3, 0.12)},
		}},
		{Number: 2, Tokens: []docmodel.Token{
			{Text: "$5M", Box: docmodel.RectPoly(0.5, 0.5, 0.6, 0.55)},
		}},
	}
	return doc
}

func TestPrepareInput(t *testing.T) {
	in := PrepareInput(testDoc(), 10)
	if in.Len() != 3 || in.TotalTokens != 3 || in.Truncated {
		t.Fatalf("input = %+v", in)
	}
	if in.Words[0] != "Market" || in.Words[1] != "size" || in.Words[2] != "$5M" {
		t.Errorf("words = %v", in.Words)
	}
	if in.Pages[2] != 2 {
		t.Errorf("pages = %v", in.Pages)
	}
	if in.Boxes[2] != [4]int{500, 500, 600, 550} {
		t.Errorf("box = %v", in.Boxes[2])
	}
}

func TestPrepareInputTruncates(t *testing.T) {
	in := PrepareInput(testDoc(), 2)
	if in.Len() != 2 || !in.Truncated || in.TotalTokens != 3 {
		t.Errorf("input = %+v", in)
	}
	if len(in.Boxes) != 2 || len(in.Pages) != 2 {
		t.Errorf("parallel slices out of step: %d boxes, %d pages", len(in.Boxes), len(in.Pages))
	}

	empty := PrepareInput(nil, 0)
	if empty.Words == nil || empty.Len() != 0 {
		t.Errorf("nil doc input = %+v", empty)
	}
}

func TestClientPredict(t *testing.T) {
	var got predictRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"predictions":[
			{"token_id":0,"label":"O","position":-1},
			{"token_id":1201,"label":"B-MARKET","position":0},
			{"token_id":1202,"label":"I-MARKET","position":1,"text":"size"},
			{"token_id":4,"label":"B-REVENUE","position":2},
			{"token_id":1,"label":"O","position":3}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 512)
	defer c.Close()
	in := PrepareInput(testDoc(), 512)
	preds, err := c.Predict(context.Background(), in, []string{"O", "B-MARKET", "I-MARKET"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if auth != "Bearer secret" {
		t.Errorf("authorization = %q", auth)
	}
	if len(got.Words) != 3 || got.MaxLength != 512 || len(got.Labels) != 3 {
		t.Errorf("request = %+v", got)
	}
	if len(preds) != 3 {
		t.Fatalf("predictions = %+v", preds)
	}
	if preds[0].Text != "Market" || preds[0].TokenID != 1201 {
		t.Errorf("first prediction = %+v", preds[0])
	}
	if preds[2].Label != "B-REVENUE" || preds[2].Position != 2 {
		t.Errorf("last prediction = %+v", preds[2])
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, true},
		{"server error", http.StatusBadGateway, `bad gateway`, true},
		{"bad request", http.StatusBadRequest, `{"error":"no words"}`, false},
		{"schema violation", http.StatusOK, `{"predictions":[{"label":"O"}]}`, false},
		{"out of order", http.StatusOK, `{"predictions":[{"token_id":1,"label":"O","position":1},{"token_id":2,"label":"O","position":0}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "", 0).Predict(context.Background(), PrepareInput(testDoc(), 0), nil)
			if !errors.Is(err, docmodel.ErrProvider) {
				t.Fatalf("expected provider error, got %v", err)
			}
			var re *docmodel.RetryableError
			if errors.As(err, &re) != tt.retryable {
				t.Errorf("retryable = %v, want %v (%v)", !tt.retryable, tt.retryable, err)
			}
		})
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"예산 초과", 4, "예..."}, // byte 4 is inside the second rune
		{"예산", 3, "예..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want || !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
