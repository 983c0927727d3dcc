// Package bio reconstructs typed entities from per-token BIO label
// predictions.
package bio

import (
	"strings"

	"github.com/dgallion1/doclayout/internal/docmodel"
)

// Outside is the label for tokens that belong to no entity.
const Outside = "O"

// SubwordMarker is the continuation prefix removed by the fallback text
// reconstruction.
const SubwordMarker = "##"

// Decoder turns an entity's subword pieces into display text.
type Decoder interface {
	Decode(pieces []string, tokenIDs []int) string
}

// ParseLabel splits a label into its tag ('B', 'I' or 'O') and entity type.
// Anything not shaped like "B-<type>" or "I-<type>" is treated as 'O'.
func ParseLabel(label string) (tag byte, typ string) {
	if len(label) > 2 && (label[0] == 'B' || label[0] == 'I') && label[1] == '-' {
		return label[0], label[2:]
	}
	return 'O', ""
}

type state int

const (
	stateNone state = iota
	stateOpen
)

// machine is the two-state aggregator: NONE, or OPEN with a pending entity.
type machine struct {
	state   state
	pending docmodel.Entity
	out     []docmodel.Entity
	dec     Decoder
}

func (m *machine) open(typ string, p docmodel.LabelPrediction) {
	m.state = stateOpen
	m.pending = docmodel.Entity{Type: typ, Start: p.Position}
	m.push(p)
}

func (m *machine) push(p docmodel.LabelPrediction) {
	m.pending.Tokens = append(m.pending.Tokens, docmodel.EntityToken{
		TokenID:  p.TokenID,
		Position: p.Position,
		Text:     p.Text,
	})
	m.pending.TokenIDs = append(m.pending.TokenIDs, p.TokenID)
}

func (m *machine) close() {
	if m.state != stateOpen {
		return
	}
	e := m.pending
	e.Text = reconstruct(e.Tokens, e.TokenIDs, m.dec)
	m.out = append(m.out, e)
	m.pending = docmodel.Entity{}
	m.state = stateNone
}

func (m *machine) step(p docmodel.LabelPrediction) {
	tag, typ := ParseLabel(p.Label)
	switch m.state {
	case stateNone:
		if tag == 'B' {
			m.open(typ, p)
		}
		// Stray I- or O: no predecessor, stay NONE.
	case stateOpen:
		switch {
		case tag == 'B':
			m.close()
			m.open(typ, p)
		case tag == 'I' && typ == m.pending.Type:
			m.push(p)
		default:
			// Mismatched I- or O closes the entity; the token is dropped.
			m.close()
		}
	}
}

// Aggregate runs the BIO state machine over preds, which must be in
// sequence order with padding already removed. dec may be nil, in which
// case Fallback reconstructs entity text. The result is never nil.
func Aggregate(preds []docmodel.LabelPrediction, dec Decoder) []docmodel.Entity {
	m := &machine{dec: dec, out: []docmodel.Entity{}}
	for _, p := range preds {
		m.step(p)
	}
	m.close()
	return m.out
}

func reconstruct(tokens []docmodel.EntityToken, ids []int, dec Decoder) string {
	pieces := make([]string, len(tokens))
	for i, t := range tokens {
		pieces[i] = t.Text
	}
	if dec != nil {
		return dec.Decode(pieces, ids)
	}
	return Fallback(pieces)
}

// Fallback joins pieces with single spaces and removes the space before
// each SubwordMarker continuation. It approximates detokenization for
// WordPiece-style vocabularies only; other tokenizers need a Decoder.
func Fallback(pieces []string) string {
	s := strings.Join(pieces, " ")
	s = strings.ReplaceAll(s, " "+SubwordMarker, "")
	s = strings.TrimPrefix(s, SubwordMarker)
	return strings.TrimSpace(s)
}
