package bio

import "strings"

// ByteLevelDecoder joins byte-level BPE pieces (RoBERTa, LayoutLMv3), where
// a leading "Ġ" marks the start of a new word.
type ByteLevelDecoder struct{}

func (ByteLevelDecoder) Decode(pieces []string, _ []int) string {
	var b strings.Builder
	for _, p := range pieces {
		if rest, ok := strings.CutPrefix(p, "Ġ"); ok {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(rest)
			continue
		}
		b.WriteString(p)
	}
	return strings.TrimSpace(b.String())
}

// WordPieceDecoder joins WordPiece pieces (BERT), where "##" marks a
// continuation of the previous word.
type WordPieceDecoder struct{}

func (WordPieceDecoder) Decode(pieces []string, _ []int) string {
	var b strings.Builder
	for _, p := range pieces {
		if rest, ok := strings.CutPrefix(p, SubwordMarker); ok {
			b.WriteString(rest)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

// DecoderFor maps a tokenizer name to a Decoder. Unknown names and "none"
// return nil, which selects the fallback.
func DecoderFor(tokenizer string) Decoder {
	switch strings.ToLower(tokenizer) {
	case "bytelevel", "bpe", "roberta", "layoutlmv3":
		return ByteLevelDecoder{}
	case "wordpiece", "bert":
		return WordPieceDecoder{}
	}
	return nil
}
