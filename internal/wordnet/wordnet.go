// Package wordnet provides a WordNet-equivalent synonym/hypernym source for
// query expansion. No practical WordNet-binding Go library exists for this,
// so this is a small embedded English dataset on the standard library,
// using the same map[string][]string synonym-dictionary idiom as a
// code-vocabulary synonym table, generalized to general prose vocabulary.
package wordnet

import "strings"

// Entry holds the synonym and hypernym sets for a single term.
type Entry struct {
	Synonyms  []string
	Hypernyms []string
}

// Source looks up synonym/hypernym relations for a normalized term.
type Source interface {
	Lookup(term string) (Entry, bool)
}

// staticSource is a map-backed Source, same shape as a code-synonym
// dictionary but entries carry hypernyms too.
type staticSource struct {
	entries map[string]Entry
}

func (s staticSource) Lookup(term string) (Entry, bool) {
	e, ok := s.entries[strings.ToLower(strings.TrimSpace(term))]
	return e, ok
}

// DefaultSource returns the built-in general-English dictionary covering
// common conceptual-vocabulary terms (theory, evidence, structure, change,
// cause, system, and their close relatives) likely to recur across
// academic/technical prose corpora.
func DefaultSource() Source {
	return staticSource{entries: defaultEntries}
}

var defaultEntries = map[string]Entry{
	"theory":       {Synonyms: []string{"hypothesis", "model", "framework"}, Hypernyms: []string{"idea", "explanation"}},
	"hypothesis":   {Synonyms: []string{"theory", "conjecture", "premise"}, Hypernyms: []string{"proposition"}},
	"evidence":     {Synonyms: []string{"proof", "data", "support"}, Hypernyms: []string{"information"}},
	"structure":    {Synonyms: []string{"framework", "architecture", "organization"}, Hypernyms: []string{"form"}},
	"system":       {Synonyms: []string{"mechanism", "apparatus", "network"}, Hypernyms: []string{"arrangement"}},
	"change":       {Synonyms: []string{"shift", "transformation", "alteration"}, Hypernyms: []string{"process"}},
	"cause":        {Synonyms: []string{"reason", "origin", "source"}, Hypernyms: []string{"factor"}},
	"effect":       {Synonyms: []string{"result", "outcome", "consequence"}, Hypernyms: []string{"phenomenon"}},
	"concept":      {Synonyms: []string{"idea", "notion", "construct"}, Hypernyms: []string{"abstraction"}},
	"analysis":     {Synonyms: []string{"examination", "study", "assessment"}, Hypernyms: []string{"process"}},
	"process":      {Synonyms: []string{"procedure", "method", "mechanism"}, Hypernyms: []string{"activity"}},
	"method":       {Synonyms: []string{"approach", "technique", "procedure"}, Hypernyms: []string{"process"}},
	"pattern":      {Synonyms: []string{"regularity", "arrangement", "motif"}, Hypernyms: []string{"structure"}},
	"function":     {Synonyms: []string{"role", "purpose", "use"}, Hypernyms: []string{"capability"}},
	"property":     {Synonyms: []string{"attribute", "characteristic", "trait"}, Hypernyms: []string{"quality"}},
	"behavior":     {Synonyms: []string{"conduct", "action", "response"}, Hypernyms: []string{"activity"}},
	"mechanism":    {Synonyms: []string{"process", "system", "apparatus"}, Hypernyms: []string{"means"}},
	"principle":    {Synonyms: []string{"rule", "law", "tenet"}, Hypernyms: []string{"belief"}},
	"model":        {Synonyms: []string{"theory", "representation", "framework"}, Hypernyms: []string{"abstraction"}},
	"framework":    {Synonyms: []string{"structure", "system", "scheme"}, Hypernyms: []string{"structure"}},
	"category":     {Synonyms: []string{"class", "group", "type"}, Hypernyms: []string{"classification"}},
	"classification": {Synonyms: []string{"categorization", "grouping", "taxonomy"}, Hypernyms: []string{"organization"}},
	"origin":       {Synonyms: []string{"source", "root", "beginning"}, Hypernyms: []string{"cause"}},
	"development":  {Synonyms: []string{"growth", "evolution", "progress"}, Hypernyms: []string{"change"}},
	"evolution":    {Synonyms: []string{"development", "progression", "transformation"}, Hypernyms: []string{"change"}},
	"growth":       {Synonyms: []string{"development", "expansion", "increase"}, Hypernyms: []string{"change"}},
	"interaction":  {Synonyms: []string{"exchange", "relation", "interplay"}, Hypernyms: []string{"relationship"}},
	"relationship": {Synonyms: []string{"connection", "association", "link"}, Hypernyms: []string{"bond"}},
	"connection":   {Synonyms: []string{"link", "relationship", "association"}, Hypernyms: []string{"bond"}},
	"influence":    {Synonyms: []string{"effect", "impact", "bearing"}, Hypernyms: []string{"power"}},
	"impact":       {Synonyms: []string{"effect", "influence", "consequence"}, Hypernyms: []string{"result"}},
	"significance": {Synonyms: []string{"importance", "relevance", "meaning"}, Hypernyms: []string{"value"}},
	"meaning":      {Synonyms: []string{"significance", "sense", "interpretation"}, Hypernyms: []string{"content"}},
	"argument":     {Synonyms: []string{"reasoning", "case", "claim"}, Hypernyms: []string{"discourse"}},
	"claim":        {Synonyms: []string{"assertion", "argument", "statement"}, Hypernyms: []string{"proposition"}},
	"evaluation":   {Synonyms: []string{"assessment", "appraisal", "review"}, Hypernyms: []string{"judgment"}},
	"approach":     {Synonyms: []string{"method", "strategy", "technique"}, Hypernyms: []string{"plan"}},
	"strategy":     {Synonyms: []string{"plan", "approach", "tactic"}, Hypernyms: []string{"plan"}},
	"observation":  {Synonyms: []string{"finding", "note", "remark"}, Hypernyms: []string{"perception"}},
	"finding":      {Synonyms: []string{"result", "observation", "discovery"}, Hypernyms: []string{"outcome"}},
	"discovery":    {Synonyms: []string{"finding", "revelation", "breakthrough"}, Hypernyms: []string{"event"}},
	"experiment":   {Synonyms: []string{"trial", "test", "study"}, Hypernyms: []string{"investigation"}},
	"investigation": {Synonyms: []string{"inquiry", "study", "examination"}, Hypernyms: []string{"research"}},
	"research":     {Synonyms: []string{"study", "inquiry", "investigation"}, Hypernyms: []string{"scholarship"}},
	"context":      {Synonyms: []string{"setting", "background", "circumstance"}, Hypernyms: []string{"environment"}},
	"constraint":   {Synonyms: []string{"limitation", "restriction", "boundary"}, Hypernyms: []string{"limit"}},
	"limitation":   {Synonyms: []string{"constraint", "restriction", "drawback"}, Hypernyms: []string{"limit"}},
	"assumption":   {Synonyms: []string{"premise", "presupposition", "supposition"}, Hypernyms: []string{"belief"}},
	"implication":  {Synonyms: []string{"consequence", "ramification", "inference"}, Hypernyms: []string{"effect"}},
	"definition":   {Synonyms: []string{"meaning", "explanation", "characterization"}, Hypernyms: []string{"statement"}},
	"explanation":  {Synonyms: []string{"account", "clarification", "rationale"}, Hypernyms: []string{"statement"}},
}
