// Assembly of the classification agent for CLI commands.

package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/richinex/basetag/agent"
	"github.com/richinex/basetag/config"
	"github.com/richinex/basetag/conversation"
	"github.com/richinex/basetag/llm"
	"github.com/richinex/basetag/search"
	"github.com/richinex/basetag/storage"
	"github.com/richinex/basetag/tools"
)

// AgentName identifies the classification agent in logs and responses.
const AgentName = "basetag"

// defaultProvider is used when neither flag, agent file nor LLM_PROVIDER
// names one.
const defaultProvider = "openai"

// App is everything a session driver needs: the agent, its history store
// and the search client behind the tools.
type App struct {
	Agent    *agent.Agent
	Store    storage.ConversationStorage
	Search   search.Client
	Settings config.Settings

	close func() error
}

// Close releases the checkpoint store.
func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// NewApp loads configuration and wires provider, search, storage and agent.
// Any configuration problem is returned before anything is started.
func NewApp(opts Options) (*App, error) {
	af, err := config.LoadAgentFile(opts.AgentFile)
	if err != nil {
		return nil, err
	}

	providerName := resolveProviderName(opts.Provider, af.Config.Provider)

	settings, err := config.New(providerName)
	if err != nil {
		return nil, err
	}
	if opts.MaxIter > 0 {
		settings.Agent.MaxIterations = opts.MaxIter
	}
	if opts.MaxMessages > 0 {
		settings.Agent.MaxMessages = opts.MaxMessages
	}

	provider, err := createProvider(settings, af, opts)
	if err != nil {
		return nil, err
	}

	searchClient, err := newSearchClient(settings)
	if err != nil {
		return nil, err
	}

	dbPath := settings.Storage.Path
	if opts.DBPath != "" {
		dbPath = opts.DBPath
	}
	store, closeStore := storage.Resolve(dbPath)

	checkpointer := conversation.NewCheckpointer(store, settings.Agent.MaxMessages)
	a := NewClassifier(af.SystemPrompt, provider, searchClient, checkpointer, settings.Agent.MaxIterations)

	slog.Debug("agent ready",
		"provider", provider.Name(),
		"model", provider.Model(),
		"search", settings.Search.Provider,
		"window", checkpointer.Window().Size(),
	)

	return &App{
		Agent:    a,
		Store:    store,
		Search:   searchClient,
		Settings: settings,
		close:    closeStore,
	}, nil
}

// NewClassifier builds the practice-base classification agent.
func NewClassifier(systemPrompt string, provider llm.Provider, client search.Client, checkpointer *conversation.Checkpointer, maxIterations int) *agent.Agent {
	cfg := agent.NewBuilder(AgentName).
		Description("实践基地三级标签分类").
		SystemPrompt(systemPrompt).
		Tools(tools.NewSearchTools(client)).
		MaxIterations(maxIterations).
		Build()

	return agent.New(cfg, provider, checkpointer)
}

func resolveProviderName(flag, fromFile string) string {
	switch {
	case flag != "":
		return flag
	case fromFile != "":
		return fromFile
	case os.Getenv("LLM_PROVIDER") != "":
		return os.Getenv("LLM_PROVIDER")
	default:
		return defaultProvider
	}
}

// createProvider builds the model client. Model parameters come from the
// agent file; credentials and endpoint come from the environment. When the
// provider was switched away from the file's, the file's model no longer
// applies and the provider's env/default model is used.
func createProvider(settings config.Settings, af config.AgentFile, opts Options) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	mc := af.Config
	model := mc.Model
	temperature := mc.TemperatureValue()
	if af.Config.Provider != "" && af.Config.Provider != settings.LLM.Provider {
		model = settings.LLM.Model
		temperature = settings.LLM.Temperature
	}
	if opts.Model != "" {
		model = opts.Model
	}

	maxTokens := settings.LLM.MaxTokens
	if mc.MaxTokens > 0 {
		maxTokens = mc.MaxTokens
	}

	baseURL := mc.BaseURL
	if baseURL == "" {
		baseURL = settings.LLM.BaseURL
	}

	b := llm.NewProviderBuilder(providerType).
		Model(model).
		MaxTokens(maxTokens).
		Temperature(float32(temperature)).
		BaseURL(baseURL).
		Timeout(mc.TimeoutDuration()).
		Thinking(mc.Thinking)
	for k, v := range mc.Headers {
		b = b.Header(k, v)
	}

	provider, err := b.APIKey(apiKey)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return provider, nil
}

func newSearchClient(settings config.Settings) (search.Client, error) {
	timeout := settings.Search.Timeout
	if timeout <= 0 {
		timeout = search.DefaultTimeout
	}
	client, err := search.New(search.Config{
		Provider: settings.Search.Provider,
		APIKey:   settings.Search.APIKey,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}
	if settings.Search.CacheTTL > 0 {
		return search.NewCache(client, settings.Search.CacheTTL, search.DefaultCacheSize), nil
	}
	return client, nil
}
