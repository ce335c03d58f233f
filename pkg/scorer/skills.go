package scorer

import (
	"regexp"
	"sort"
	"strings"
)

// knownSkills is the master skill and tool taxonomy matched against resumes
// and job descriptions.
var knownSkills = []string{
	// Languages
	"python", "java", "javascript", "typescript", "c++", "c#", "go", "golang",
	"rust", "ruby", "php", "swift", "kotlin", "scala", "haskell", "r",
	"perl", "lua", "dart", "elixir", "clojure", "matlab", "sql", "bash",
	"shell", "powershell", "objective-c", "assembly", "vhdl", "verilog",
	// Frontend
	"react", "react.js", "reactjs", "angular", "vue", "vue.js", "vuejs",
	"svelte", "next.js", "nextjs", "nuxt", "gatsby", "remix",
	"html", "css", "sass", "scss", "less", "tailwind", "tailwindcss",
	"bootstrap", "material ui", "chakra ui", "styled-components",
	"webpack", "vite", "rollup", "babel",
	// Backend
	"node", "node.js", "nodejs", "express", "express.js", "fastapi", "flask",
	"django", "spring", "spring boot", "springboot", "rails", "ruby on rails",
	".net", "asp.net", "laravel", "gin", "fiber", "actix", "rocket",
	"graphql", "rest", "restful", "grpc", "websocket", "api",
	// Data / ML / AI
	"tensorflow", "pytorch", "keras", "scikit-learn", "sklearn", "pandas",
	"numpy", "scipy", "matplotlib", "seaborn", "plotly", "jupyter",
	"hugging face", "huggingface", "transformers", "langchain", "llamaindex",
	"openai", "llm", "nlp", "computer vision", "deep learning",
	"machine learning", "ml", "ai", "neural network", "rag",
	"data pipeline", "etl", "spark", "pyspark", "hadoop", "hive",
	"airflow", "dagster", "dbt", "fivetran",
	"tableau", "power bi", "looker", "grafana", "streamlit",
	// Databases
	"postgresql", "postgres", "mysql", "sqlite", "mariadb",
	"mongodb", "dynamodb", "cassandra", "couchbase", "firebase",
	"redis", "memcached", "elasticsearch", "opensearch", "solr",
	"neo4j", "pinecone", "weaviate", "qdrant", "milvus", "chroma",
	"snowflake", "bigquery", "redshift", "databricks", "clickhouse",
	// Cloud / Infra
	"aws", "amazon web services", "azure", "gcp", "google cloud",
	"docker", "kubernetes", "k8s", "terraform", "ansible", "pulumi",
	"jenkins", "github actions", "gitlab ci", "circleci",
	"ci/cd", "ci cd", "devops", "sre", "linux", "unix",
	"nginx", "apache", "caddy", "traefik",
	"cloudflare", "vercel", "netlify", "heroku", "fly.io",
	// Messaging / Streaming
	"kafka", "rabbitmq", "sqs", "sns", "pubsub", "nats", "redis streams",
	"celery", "sidekiq",
	// Testing
	"jest", "mocha", "pytest", "junit", "cypress", "playwright", "selenium",
	"postman", "swagger", "openapi",
	// Version control
	"git", "github", "gitlab", "bitbucket", "svn",
	// Mobile
	"react native", "flutter", "ios", "android", "swiftui", "jetpack compose",
	// Other
	"agile", "scrum", "jira", "confluence", "notion",
	"microservices", "monorepo", "serverless", "lambda",
	"oauth", "jwt", "sso", "ldap", "saml",
	"webscraping", "web scraping", "beautifulsoup", "scrapy",
}

// skillAliases collapses spelling variants to one canonical name so that
// "react.js" on a resume matches "reactjs" in a posting.
var skillAliases = map[string]string{
	"react.js":            "react",
	"reactjs":             "react",
	"vue.js":              "vue",
	"vuejs":               "vue",
	"node.js":             "node",
	"nodejs":              "node",
	"express.js":          "express",
	"next.js":             "nextjs",
	"golang":              "go",
	"postgresql":          "postgres",
	"amazon web services": "aws",
	"google cloud":        "gcp",
	"tailwindcss":         "tailwind",
	"scikit-learn":        "sklearn",
	"springboot":          "spring boot",
	"huggingface":         "hugging face",
	"k8s":                 "kubernetes",
	"ci cd":               "ci/cd",
}

type skillMatcher struct {
	name string
	re   *regexp.Regexp
}

var skillMatchers = buildSkillMatchers()

func buildSkillMatchers() []skillMatcher {
	matchers := make([]skillMatcher, 0, len(knownSkills))
	for _, skill := range knownSkills {
		// Boundary classes instead of \b so that "c++" and ".net" match.
		pattern := `(?:^|[\s,;(./\-])` + regexp.QuoteMeta(skill) + `(?:[\s,;)./\-]|$)`
		matchers = append(matchers, skillMatcher{name: skill, re: regexp.MustCompile(pattern)})
	}
	return matchers
}

// ExtractSkills returns the canonical, sorted set of known skills found in
// text. Matching is case insensitive over a lowercased copy.
func ExtractSkills(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, m := range skillMatchers {
		if m.re.MatchString(lower) {
			found = append(found, m.name)
		}
	}
	return canonicalize(found)
}

func canonicalize(skills []string) []string {
	seen := make(map[string]bool, len(skills))
	var out []string
	for _, s := range skills {
		canonical := s
		if alias, ok := skillAliases[s]; ok {
			canonical = alias
		}
		if !seen[canonical] {
			seen[canonical] = true
			out = append(out, canonical)
		}
	}
	sort.Strings(out)
	return out
}

func intersect(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	var out []string
	for _, s := range a {
		if inB[s] {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func subtract(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	var out []string
	for _, s := range a {
		if !inB[s] {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
