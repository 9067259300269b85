package services

import (
	"sort"
	"strings"
)

// skillTerm is one canonical skill. Aliases are alternative spellings of the
// same skill; Related terms are evidence that the skill was exercised even
// when it is not named.
type skillTerm struct {
	Canonical string
	Aliases   []string
	Related   []string
	// Ambiguous spellings are only accepted from explicit skill lists, never
	// from free-text scans ("go", "rest").
	Ambiguous []string
}

var skillVocabulary = []skillTerm{
	{Canonical: "python", Aliases: []string{"python3"}, Ambiguous: []string{"py"}, Related: []string{"django", "flask", "fastapi", "pandas", "pytest"}},
	{Canonical: "go", Aliases: []string{"golang"}, Ambiguous: []string{"go"}, Related: []string{"goroutines", "gin", "grpc-go"}},
	{Canonical: "java", Aliases: []string{"java 8", "java 11", "java 17"}, Related: []string{"spring", "jvm", "maven", "gradle"}},
	{Canonical: "javascript", Aliases: []string{"js", "ecmascript", "es6"}, Related: []string{"node.js", "react", "vue", "angular"}},
	{Canonical: "typescript", Ambiguous: []string{"ts"}},
	{Canonical: "c++", Aliases: []string{"cpp"}},
	{Canonical: "c#", Aliases: []string{"csharp", ".net", "dotnet"}},
	{Canonical: "rust", Related: []string{"cargo", "tokio"}},
	{Canonical: "ruby", Aliases: []string{"ruby on rails", "rails"}},
	{Canonical: "php", Aliases: []string{"laravel"}},
	{Canonical: "kotlin"},
	{Canonical: "swift", Aliases: []string{"swiftui"}},
	{Canonical: "scala", Related: []string{"akka"}},
	{Canonical: "sql", Aliases: []string{"t-sql", "pl/sql"}, Related: []string{"postgresql", "postgres", "mysql", "queries", "query optimization"}},
	{Canonical: "postgresql", Aliases: []string{"postgres", "psql"}},
	{Canonical: "mysql", Aliases: []string{"mariadb"}},
	{Canonical: "mongodb", Aliases: []string{"mongo"}},
	{Canonical: "redis"},
	{Canonical: "kafka", Aliases: []string{"apache kafka"}},
	{Canonical: "rabbitmq", Aliases: []string{"amqp"}},
	{Canonical: "elasticsearch", Aliases: []string{"elastic search", "opensearch"}},
	{Canonical: "docker", Aliases: []string{"containers", "containerization"}},
	{Canonical: "kubernetes", Aliases: []string{"k8s"}, Related: []string{"helm", "eks", "gke", "aks"}},
	{Canonical: "terraform", Aliases: []string{"infrastructure as code"}},
	{Canonical: "aws", Aliases: []string{"amazon web services"}, Related: []string{"ec2", "s3", "lambda", "dynamodb", "eks", "cloudformation"}},
	{Canonical: "gcp", Aliases: []string{"google cloud", "google cloud platform"}, Related: []string{"bigquery", "gke", "cloud run"}},
	{Canonical: "azure", Aliases: []string{"microsoft azure"}},
	{Canonical: "linux", Aliases: []string{"unix"}, Related: []string{"bash", "shell scripting"}},
	{Canonical: "git", Aliases: []string{"github", "gitlab"}},
	{Canonical: "ci/cd", Aliases: []string{"ci cd", "continuous integration", "continuous delivery", "continuous deployment"}, Related: []string{"github actions", "jenkins", "gitlab ci", "circleci"}},
	{Canonical: "react", Aliases: []string{"react.js", "reactjs"}, Related: []string{"redux", "next.js"}},
	{Canonical: "angular", Aliases: []string{"angularjs"}},
	{Canonical: "vue", Aliases: []string{"vue.js", "vuejs"}},
	{Canonical: "node.js", Aliases: []string{"nodejs"}, Ambiguous: []string{"node"}, Related: []string{"express"}},
	{Canonical: "django"},
	{Canonical: "flask"},
	{Canonical: "fastapi"},
	{Canonical: "spring", Aliases: []string{"spring boot"}},
	{Canonical: "graphql"},
	{Canonical: "rest apis", Aliases: []string{"rest api", "restful"}, Ambiguous: []string{"rest"}, Related: []string{"http api", "endpoints", "openapi", "swagger"}},
	{Canonical: "grpc", Aliases: []string{"protobuf", "protocol buffers"}},
	{Canonical: "microservices", Aliases: []string{"microservice", "micro-services", "service-oriented architecture"}, Related: []string{"docker", "kubernetes", "grpc", "service mesh", "api gateway"}},
	{
		Canonical: "distributed systems",
		Aliases:   []string{"distributed system", "distributed computing"},
		Related: []string{
			"kafka", "rabbitmq", "microservices", "grpc", "kubernetes", "sharding", "replication",
			"consensus", "raft", "high availability", "fault tolerance", "fault-tolerant", "event-driven",
			"message queue", "req/s", "requests per second", "rps", "qps", "throughput", "horizontal scaling",
		},
	},
	{Canonical: "system design", Aliases: []string{"systems design", "software architecture"}, Related: []string{"architected", "scalability", "scalable"}},
	{Canonical: "machine learning", Aliases: []string{"ml"}, Related: []string{"scikit-learn", "model training", "xgboost", "pytorch", "tensorflow"}},
	{Canonical: "deep learning", Related: []string{"neural networks", "pytorch", "tensorflow", "cnn", "transformers"}},
	{Canonical: "nlp", Aliases: []string{"natural language processing"}, Related: []string{"spacy", "transformers", "text classification"}},
	{Canonical: "llm", Aliases: []string{"llms", "large language models", "large language model", "generative ai", "genai"}, Related: []string{"gpt", "gemini", "rag", "prompt engineering", "langchain", "embeddings"}},
	{Canonical: "pytorch"},
	{Canonical: "tensorflow", Aliases: []string{"keras"}},
	{Canonical: "spark", Aliases: []string{"apache spark", "pyspark"}},
	{Canonical: "airflow", Aliases: []string{"apache airflow"}},
	{Canonical: "pandas", Related: []string{"numpy"}},
	{Canonical: "data engineering", Aliases: []string{"data pipelines", "etl"}, Related: []string{"spark", "airflow", "dbt", "data warehouse"}},
	{Canonical: "agile", Aliases: []string{"scrum", "kanban"}},
}

var (
	skillIndex     map[string]*skillTerm
	skillListIndex map[string]*skillTerm
)

func init() {
	skillIndex = make(map[string]*skillTerm)
	skillListIndex = make(map[string]*skillTerm)

	for i := range skillVocabulary {
		term := &skillVocabulary[i]
		skillIndex[term.Canonical] = term
		skillListIndex[term.Canonical] = term
		for _, alias := range term.Aliases {
			skillListIndex[alias] = term
		}
		for _, alias := range term.Ambiguous {
			skillListIndex[alias] = term
		}
	}
}

// CanonicalSkill maps a skill-list item onto its canonical vocabulary form.
// Unknown items are returned normalized with ok=false.
func CanonicalSkill(item string) (string, bool) {
	normalized := normalizeSkill(item)
	if term, ok := skillListIndex[normalized]; ok {
		return term.Canonical, true
	}
	return normalized, false
}

func normalizeSkill(item string) string {
	item = strings.ToLower(strings.TrimSpace(item))
	item = strings.Trim(item, " \t.;:•*-–—()[]\"'")
	return strings.Join(strings.Fields(item), " ")
}

// scanTerms are the spellings that may be matched inside free text.
func (t *skillTerm) scanTerms() []string {
	terms := []string{t.Canonical}
	if isAmbiguous(t, t.Canonical) {
		terms = nil
	}
	return append(terms, t.Aliases...)
}

func isAmbiguous(t *skillTerm, spelling string) bool {
	for _, a := range t.Ambiguous {
		if a == spelling {
			return true
		}
	}
	return false
}

// FindSkills returns the canonical vocabulary skills mentioned in free text.
func FindSkills(text string) []string {
	lower := strings.ToLower(text)
	found := make(map[string]struct{})

	for i := range skillVocabulary {
		term := &skillVocabulary[i]
		if containsAnyTerm(lower, term.scanTerms()) {
			found[term.Canonical] = struct{}{}
		}
	}

	return sortedKeys(found)
}

// mentionsSkill reports whether lowered text names the canonical skill.
func mentionsSkill(lower, skill string) bool {
	term, ok := skillIndex[skill]
	if !ok {
		return containsTerm(lower, skill)
	}
	return containsAnyTerm(lower, term.scanTerms())
}

// relatedEvidence returns the related terms of skill found in lowered text.
func relatedEvidence(lower, skill string) []string {
	term, ok := skillIndex[skill]
	if !ok {
		return nil
	}

	var hits []string
	for _, related := range term.Related {
		if containsTerm(lower, related) {
			hits = append(hits, related)
		}
	}
	return hits
}

// isVocabularySkill reports whether skill is a known canonical skill.
func isVocabularySkill(skill string) bool {
	_, ok := skillIndex[skill]
	return ok
}

// dedupeSkills canonicalizes, dedupes case-insensitively and sorts.
func dedupeSkills(skills []string) []string {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		canonical, _ := CanonicalSkill(s)
		if canonical == "" {
			continue
		}
		set[canonical] = struct{}{}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
