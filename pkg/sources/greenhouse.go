package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"jobtrack/pkg/models"
)

// greenhouseTokens maps board tokens to display names. A token is the URL
// slug under boards-api.greenhouse.io/v1/boards/{token}/jobs.
var greenhouseTokens = map[string]string{
	"meta": "Meta", "netflix": "Netflix", "apple": "Apple",
	"stripe": "Stripe", "databricks": "Databricks", "figma": "Figma",
	"notion": "Notion", "openai": "OpenAI", "anthropic": "Anthropic",
	"coinbase": "Coinbase", "datadog": "Datadog", "cloudflare": "Cloudflare",
	"roblox": "Roblox", "instacart": "Instacart", "doordash": "DoorDash",
	"discord": "Discord", "gitlab": "GitLab", "github": "GitHub",
	"plaid": "Plaid", "airtable": "Airtable", "grammarly": "Grammarly",
	"retool": "Retool", "ramp": "Ramp", "brex": "Brex", "gusto": "Gusto",
	"flexport": "Flexport", "benchling": "Benchling", "samsara": "Samsara",
	"intercom": "Intercom", "webflow": "Webflow", "vanta": "Vanta",
	"lattice": "Lattice", "faire": "Faire", "anduril": "Anduril",
	"scaleai": "Scale AI", "rippling": "Rippling",
	"airbnb": "Airbnb", "lyft": "Lyft", "uber": "Uber",
	"pinterest": "Pinterest", "snap": "Snap", "reddit": "Reddit",
	"robinhood": "Robinhood", "chime": "Chime", "sofi": "SoFi",
	"affirm": "Affirm", "klarna": "Klarna", "mercury": "Mercury",
	"deel": "Deel", "zapier": "Zapier", "canva": "Canva", "miro": "Miro",
	"loom": "Loom", "calendly": "Calendly", "clickup": "ClickUp",
	"linear": "Linear", "vercel": "Vercel", "supabase": "Supabase",
	"planetscale": "PlanetScale", "neon": "Neon",
	"cockroachlabs": "Cockroach Labs",
	"snowflakecomputing": "Snowflake", "hashicorp": "HashiCorp",
	"confluent": "Confluent", "elastic": "Elastic", "mongodb": "MongoDB",
	"redis": "Redis", "couchbase": "Couchbase", "neo4j": "Neo4j",
	"fivetran": "Fivetran", "dbt": "dbt Labs", "airbyte": "Airbyte",
	"segment": "Segment", "amplitude": "Amplitude",
	"mixpanel": "Mixpanel", "heap": "Heap", "posthog": "PostHog",
	"launchdarkly": "LaunchDarkly", "contentful": "Contentful",
	"docker": "Docker", "circleci": "CircleCI", "buildkite": "Buildkite",
	"harness": "Harness", "jfrog": "JFrog", "snyk": "Snyk",
	"wiz": "Wiz", "tailscale": "Tailscale", "teleport": "Teleport",
	"ngrok": "ngrok", "postman": "Postman", "kong": "Kong",
	"pulumi": "Pulumi",
	"cohere": "Cohere", "mistral": "Mistral AI", "stability": "Stability AI",
	"runway": "Runway", "huggingface": "Hugging Face",
	"labelbox": "Labelbox", "tecton": "Tecton", "anyscale": "Anyscale",
	"modal": "Modal", "replicate": "Replicate", "baseten": "Baseten",
	"cerebras": "Cerebras", "sambanova": "SambaNova",
	"coreweave": "CoreWeave", "together": "Together AI",
	"perplexity": "Perplexity AI", "character": "Character.AI",
	"weights-and-biases": "Weights & Biases",
	"crowdstrike": "CrowdStrike", "zscaler": "Zscaler",
	"sentinelone": "SentinelOne", "splunk": "Splunk",
	"newrelic": "New Relic", "dynatrace": "Dynatrace",
	"grafanalabs": "Grafana Labs", "honeycomb": "Honeycomb",
	"chronosphere": "Chronosphere", "cribl": "Cribl",
	"1password": "1Password", "okta": "Okta",
	"square": "Square", "marqeta": "Marqeta", "adyen": "Adyen",
	"checkout": "Checkout.com", "wise": "Wise", "revolut": "Revolut",
	"monzo": "Monzo", "carta": "Carta", "betterment": "Betterment",
	"wealthfront": "Wealthfront", "navan": "Navan",
	"expensify": "Expensify", "lithic": "Lithic", "alpaca": "Alpaca",
	"tempus": "Tempus", "oscar": "Oscar Health", "cityblock": "Cityblock",
	"ro": "Ro", "hims": "Hims & Hers", "headway": "Headway",
	"springhealth": "Spring Health", "lyrahealth": "Lyra Health",
	"zocdoc": "Zocdoc", "veeva": "Veeva",
	"shopify": "Shopify", "etsy": "Etsy", "stockx": "StockX",
	"wayfair": "Wayfair", "chewy": "Chewy", "gopuff": "Gopuff",
	"zillow": "Zillow", "redfin": "Redfin", "compass": "Compass",
	"opendoor": "Opendoor", "blend": "Blend",
	"duolingo": "Duolingo", "coursera": "Coursera", "udemy": "Udemy",
	"quizlet": "Quizlet", "instructure": "Instructure",
	"datacamp": "DataCamp", "pluralsight": "Pluralsight",
	"greenhouse": "Greenhouse", "lever": "Lever", "ashby": "Ashby",
	"gem": "Gem", "justworks": "Justworks", "oyster": "Oyster",
	"tesla": "Tesla", "rivian": "Rivian", "cruise": "Cruise",
	"waymo": "Waymo", "aurora": "Aurora", "nuro": "Nuro", "zoox": "Zoox",
	"spacex": "SpaceX", "palantir": "Palantir", "rocketlab": "Rocket Lab",
	"planet": "Planet Labs", "shieldai": "Shield AI",
	"kraken": "Kraken", "gemini": "Gemini", "chainalysis": "Chainalysis",
	"fireblocks": "Fireblocks", "circle": "Circle", "ripple": "Ripple",
	"alchemy": "Alchemy", "opensea": "OpenSea",
	"epicgames": "Epic Games", "riotgames": "Riot Games",
	"bungie": "Bungie", "niantic": "Niantic", "unity": "Unity",
	"spotify": "Spotify", "hubspot": "HubSpot", "braze": "Braze",
	"iterable": "Iterable", "twilio": "Twilio",
	"digitalocean": "DigitalOcean", "fastly": "Fastly",
	"netlify": "Netlify", "render": "Render",
	"hex": "Hex", "clickhouse": "ClickHouse", "starburst": "Starburst",
	"ironclad": "Ironclad", "docusign": "DocuSign", "everlaw": "Everlaw",
	"procore": "Procore", "chargepoint": "ChargePoint",
	"project44": "project44", "easypost": "EasyPost",
	"hopper": "Hopper", "sonder": "Sonder", "turo": "Turo",
	"toast": "Toast", "olo": "Olo", "yelp": "Yelp",
	"opentable": "OpenTable",
	"lemonade": "Lemonade", "hippo": "Hippo", "vouch": "Vouch",
	"klaviyo": "Klaviyo", "attentive": "Attentive",
	"outreach": "Outreach", "gong": "Gong", "clari": "Clari",
	"zoominfo": "ZoomInfo", "apollo": "Apollo",
	"asana": "Asana", "monday": "monday.com",
	"smartsheet": "Smartsheet", "coda": "Coda", "gather": "Gather",
	"stytch": "Stytch", "workos": "WorkOS", "clerk": "Clerk",
	"hasura": "Hasura", "prisma": "Prisma", "temporal": "Temporal",
	"resend": "Resend", "courier": "Courier",
	"framer": "Framer", "descript": "Descript",
	"nvidia": "NVIDIA", "qualcomm": "Qualcomm", "groq": "Groq",
	"figureai": "Figure AI", "symbotic": "Symbotic",
	"ringcentral": "RingCentral", "dialpad": "Dialpad",
	"freshworks": "Freshworks", "zendesk": "Zendesk",
	"front": "Front", "pagerduty": "PagerDuty",
	"twitch": "Twitch", "bloomberg": "Bloomberg", "nytimes": "New York Times",
	"zoom": "Zoom", "five9": "Five9",
	"oracle": "Oracle", "vmware": "VMware", "netapp": "NetApp",
	"nutanix": "Nutanix", "rubrik": "Rubrik", "cohesity": "Cohesity",
	"fortinet": "Fortinet", "paloaltonetworks": "Palo Alto Networks",
	"sailpoint": "SailPoint", "cyberark": "CyberArk",
	"rapid7": "Rapid7", "tenable": "Tenable", "qualys": "Qualys",
	"proofpoint": "Proofpoint", "abnormalsecurity": "Abnormal Security",
	"bill": "BILL", "alloy": "Alloy", "socure": "Socure",
	"persona": "Persona", "onfido": "Onfido",
	"langchain": "LangChain", "pinecone": "Pinecone",
	"weaviate": "Weaviate", "qdrant": "Qdrant", "chroma": "Chroma",
	"deepgram": "Deepgram", "assemblyai": "AssemblyAI",
	"elevenlabs": "ElevenLabs", "synthesia": "Synthesia",
	"dropbox": "Dropbox", "box": "Box", "tiktok": "TikTok",
	"grab": "Grab", "nubank": "Nubank", "mercadolibre": "MercadoLibre",
}

const (
	greenhouseCacheFile = "greenhouse_valid.json"
	greenhouseCacheTTL  = 7 * 24 * time.Hour
	greenhouseProbers   = 20
)

type greenhouseCache struct {
	CachedAt time.Time         `json:"cached_at"`
	Tokens   map[string]string `json:"tokens"`
	Count    int               `json:"count"`
}

// Greenhouse fans out over a few hundred public job boards. Board liveness
// is probed once and cached for a week; dead tokens cost nothing afterwards.
type Greenhouse struct {
	baseURL     string
	dataDir     string
	client      *http.Client
	probeClient *http.Client
	logger      *logrus.Logger
	validTokens map[string]string
}

// NewGreenhouse builds the adapter. dataDir holds the liveness cache.
func NewGreenhouse(dataDir string, logger *logrus.Logger) *Greenhouse {
	return &Greenhouse{
		baseURL:     "https://boards-api.greenhouse.io/v1/boards",
		dataDir:     dataDir,
		client:      newHTTPClient(10 * time.Second),
		probeClient: newHTTPClient(5 * time.Second),
		logger:      logger,
	}
}

func (g *Greenhouse) Name() string { return "Greenhouse" }

// IsConfigured is always true; the board API is keyless.
func (g *Greenhouse) IsConfigured() bool { return true }

type greenhouseJob struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	Content     string `json:"content"`
	UpdatedAt   string `json:"updated_at"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
}

type greenhouseBoard struct {
	Jobs []greenhouseJob `json:"jobs"`
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
}

// Fetch pulls every live board and keeps entry-level postings.
func (g *Greenhouse) Fetch(ctx context.Context) ([]models.JobPosting, error) {
	valid, err := g.validBoards(ctx)
	if err != nil {
		return nil, err
	}
	g.logger.Infof("Scraping %d Greenhouse boards", len(valid))

	var all []models.JobPosting
	errors := 0
	for token, name := range valid {
		if ctx.Err() != nil {
			return all, ctx.Err()
		}
		jobs, err := g.fetchBoard(ctx, token, name)
		if err != nil {
			errors++
			if errors <= 3 {
				g.logger.Warnf("Greenhouse board %s: %v", name, err)
			}
			continue
		}
		all = append(all, jobs...)
	}
	g.logger.Infof("Greenhouse total: %d jobs from %d boards", len(all), len(valid))
	return all, nil
}

func (g *Greenhouse) fetchBoard(ctx context.Context, token, companyName string) ([]models.JobPosting, error) {
	var board greenhouseBoard
	status, err := getJSON(ctx, g.client, fmt.Sprintf("%s/%s/jobs", g.baseURL, token), nil, &board)
	if status == 404 {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	jobs := make([]models.JobPosting, 0, len(board.Jobs))
	for _, raw := range board.Jobs {
		location := raw.Location.Name
		if location == "" {
			location = "Not specified"
		}
		jobs = append(jobs, models.JobPosting{
			JobID:       fmt.Sprintf("gh_%s_%d", token, raw.ID),
			Company:     companyName,
			Title:       raw.Title,
			Location:    location,
			URL:         raw.AbsoluteURL,
			Description: raw.Content,
			PostedDate:  raw.UpdatedAt,
			Source:      "Greenhouse",
		})
	}
	return FilterNewGrad(jobs), nil
}

// validBoards returns the live token set, probing the full list only when
// the cache is missing or stale.
func (g *Greenhouse) validBoards(ctx context.Context) (map[string]string, error) {
	if g.validTokens != nil {
		return g.validTokens, nil
	}
	if cached := g.loadCache(); len(cached) > 0 {
		g.logger.Infof("Loaded %d valid Greenhouse tokens from cache", len(cached))
		g.validTokens = cached
		return cached, nil
	}

	g.logger.Infof("Validating %d Greenhouse tokens (first run)", len(greenhouseTokens))
	valid := g.probeTokens(ctx)
	g.logger.Infof("Found %d valid Greenhouse boards out of %d tested", len(valid), len(greenhouseTokens))

	g.saveCache(valid)
	g.validTokens = valid
	return valid, nil
}

func (g *Greenhouse) probeTokens(ctx context.Context) map[string]string {
	type probe struct {
		token string
		name  string
	}
	type result struct {
		token string
		name  string
		live  bool
	}

	work := make(chan probe)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < greenhouseProbers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range work {
				results <- result{p.token, p.name, g.probeToken(ctx, p.token)}
			}
		}()
	}

	go func() {
		for token, name := range greenhouseTokens {
			work <- probe{token, name}
		}
		close(work)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	valid := make(map[string]string)
	for r := range results {
		if r.live {
			valid[r.token] = r.name
		}
	}
	return valid
}

func (g *Greenhouse) probeToken(ctx context.Context, token string) bool {
	var board greenhouseBoard
	status, err := getJSON(ctx, g.probeClient, fmt.Sprintf("%s/%s/jobs", g.baseURL, token), nil, &board)
	if err != nil || status != 200 {
		return false
	}
	if board.Meta.Total > 0 {
		return true
	}
	return len(board.Jobs) > 0
}

func (g *Greenhouse) cachePath() string {
	return filepath.Join(g.dataDir, greenhouseCacheFile)
}

func (g *Greenhouse) loadCache() map[string]string {
	data, err := os.ReadFile(g.cachePath())
	if err != nil {
		return nil
	}
	var cache greenhouseCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil
	}
	if time.Since(cache.CachedAt) > greenhouseCacheTTL {
		return nil
	}
	return cache.Tokens
}

func (g *Greenhouse) saveCache(valid map[string]string) {
	cache := greenhouseCache{
		CachedAt: time.Now(),
		Tokens:   valid,
		Count:    len(valid),
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(g.dataDir, 0o755); err != nil {
		g.logger.Warnf("Could not create cache dir: %v", err)
		return
	}
	if err := os.WriteFile(g.cachePath(), data, 0o644); err != nil {
		g.logger.Warnf("Could not save Greenhouse cache: %v", err)
	}
}
