package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/conceptrag/core/internal/resilience"
)

// Completer is the narrow LLM surface the extractor needs: one system/user
// turn in, text response and model identifier out. internal/llm.Client
// satisfies this.
type Completer interface {
	Complete(ctx context.Context, system, user string) (text, model string, err error)
}

// tokensPerChar approximates a token as ~4 characters of English prose,
// the rule of thumb every tokenizer-free budget estimate in the corpus
// uses; exactness doesn't matter here, only staying well clear of the
// model's context window.
const tokensPerChar = 4

// OversizedTokenThreshold is the default point above which a document is
// split into chunks before extraction, each chunk extracted independently
// and the results merged.
const OversizedTokenThreshold = 100_000

const extractionSystemPrompt = `You are a document indexing assistant. Read the provided text and return a JSON object with exactly these fields:
{
  "primary_concepts": [...],   // 80-150 abstract ideas, methodologies, strategies, processes, or phenomena the text is ABOUT
  "technical_terms": [...],    // proper nouns, specific artifacts, titles, notation, named roles — references, not ideas
  "acronyms": [...],           // abbreviations
  "categories": [...],         // 3-7 coarse domain names
  "related_concepts": [...]    // 20-40 adjacent ideas worth indexing but not central
}
Return only the JSON object, no prose, no markdown fences.`

// LLMExtractor calls an LLM through the LLM_API resilience profile to
// produce a ConceptRecord, chunking oversized documents and tolerating
// malformed JSON with one sanitize-and-retry pass, per the extraction
// contract.
type LLMExtractor struct {
	Completer      Completer
	Executor       *resilience.Executor
	TokenThreshold int
}

// NewLLMExtractor constructs an extractor bound to the LLM_API profile.
func NewLLMExtractor(completer Completer, executor *resilience.Executor) *LLMExtractor {
	if executor != nil {
		executor.Register("llm.extract_concepts", resilience.LLMAPIProfile())
	}
	return &LLMExtractor{Completer: completer, Executor: executor, TokenThreshold: OversizedTokenThreshold}
}

func (e *LLMExtractor) Extract(ctx context.Context, doc ExtractionInput) (ConceptRecord, error) {
	threshold := e.TokenThreshold
	if threshold <= 0 {
		threshold = OversizedTokenThreshold
	}

	chunks := splitOversized(doc.Text, threshold)
	if len(chunks) == 1 {
		return e.extractOne(ctx, chunks[0])
	}

	var merged ConceptRecord
	for i, chunk := range chunks {
		record, err := e.extractOne(ctx, chunk)
		if err != nil {
			// One oversized chunk's failure doesn't sink the whole
			// document; it simply contributes nothing to the merge.
			continue
		}
		if i == 0 {
			merged = record
		} else {
			merged = merged.Merge(record)
		}
	}
	return merged, nil
}

// splitOversized breaks text into ~threshold-token chunks on paragraph
// boundaries where possible, falling back to a hard split when a single
// paragraph alone exceeds the budget.
func splitOversized(text string, thresholdTokens int) []string {
	maxChars := thresholdTokens * tokensPerChar
	if len(text) <= maxChars {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder
	for _, para := range paragraphs {
		if current.Len()+len(para) > maxChars && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if len(para) > maxChars {
			for len(para) > maxChars {
				chunks = append(chunks, para[:maxChars])
				para = para[maxChars:]
			}
		}
		current.WriteString(para)
		current.WriteString("\n\n")
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func (e *LLMExtractor) extractOne(ctx context.Context, text string) (ConceptRecord, error) {
	call := func(ctx context.Context) (ConceptRecord, error) {
		raw, model, err := e.Completer.Complete(ctx, extractionSystemPrompt, text)
		if err != nil {
			return ConceptRecord{}, fmt.Errorf("llm completion: %w", err)
		}

		record, parseErr := parseConceptJSON(raw)
		if parseErr != nil {
			sanitized := sanitizeJSON(raw)
			record, parseErr = parseConceptJSON(sanitized)
			if parseErr != nil {
				return ConceptRecord{}, fmt.Errorf("malformed extraction response: %w", parseErr)
			}
		}
		record.Prompt = extractionSystemPrompt
		record.Model = model
		return record, nil
	}

	if e.Executor == nil {
		return call(ctx)
	}
	return resilience.Execute(ctx, e.Executor, "llm.extract_concepts", call)
}

// parseConceptJSON reads the five extraction fields with gjson, tolerating
// extra surrounding prose the model may have emitted despite instructions.
func parseConceptJSON(raw string) (ConceptRecord, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return ConceptRecord{}, fmt.Errorf("no JSON object found in response")
	}
	body := raw[start : end+1]
	if !gjson.Valid(body) {
		return ConceptRecord{}, fmt.Errorf("invalid JSON: %s", truncate(body, 200))
	}

	parsed := gjson.Parse(body)
	return ConceptRecord{
		PrimaryConcepts: stringArray(parsed.Get("primary_concepts")),
		TechnicalTerms:  stringArray(parsed.Get("technical_terms")),
		Acronyms:        stringArray(parsed.Get("acronyms")),
		Categories:      stringArray(parsed.Get("categories")),
		RelatedConcepts: stringArray(parsed.Get("related_concepts")),
	}, nil
}

func stringArray(result gjson.Result) []string {
	if !result.IsArray() {
		return nil
	}
	items := result.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// sanitizeJSON applies a malformed-JSON repair pass: unescape stray quotes,
// strip trailing commas before closing brackets, and truncate at the last
// balanced brace.
func sanitizeJSON(raw string) string {
	s := raw
	s = strings.ReplaceAll(s, "\\\"", "\"")
	s = stripTrailingCommas(s)
	return truncateAtBalancedBrace(s)
}

func stripTrailingCommas(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if r == ',' {
			j := i + 1
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\n' || runes[j] == '\t' || runes[j] == '\r') {
				j++
			}
			if j < len(runes) && (runes[j] == '}' || runes[j] == ']') {
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truncateAtBalancedBrace(s string) string {
	depth := 0
	lastBalanced := -1
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				lastBalanced = i
			}
		}
	}
	if lastBalanced < 0 {
		return s
	}
	return s[:lastBalanced+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
