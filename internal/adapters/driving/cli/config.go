package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/procrag/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"settings"},
	Short:   "Manage configuration",
	Long: `View and change the configuration stored in ~/.procrag/config.toml.

Keys are dotted paths such as retrieval.top_k or llm.model.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a stored value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Store a value",
	Long: `Stores a value under a dotted key. true/false become booleans and
numbers become numbers, except for keys holding names, URLs or secrets.

  procrag config set retrieval.top_k 8
  procrag config set intent.judge false
  procrag config set cache.ttl 30m`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if configStore == nil {
			return errNotConfigured("config")
		}
		cmd.Println(configStore.Path())
		return nil
	},
}

var providerFlags struct {
	provider     string
	model        string
	apiKey       string
	skipValidate bool
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	Long: `Sets the provider and model used for semantic search. Cloud providers
need an API key; it is read from --api-key or prompted for.`,
	Args: cobra.NoArgs,
	RunE: runConfigEmbedding,
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure the LLM provider",
	Long: `Sets the provider and model used for intent classification and query
reformulation. Cloud providers need an API key; it is read from --api-key or
prompted for.`,
	Args: cobra.NoArgs,
	RunE: runConfigLLM,
}

var rerankerFlags struct {
	url          string
	model        string
	skipValidate bool
}

var configRerankerCmd = &cobra.Command{
	Use:   "reranker",
	Short: "Configure the cross-encoder reranker",
	Long: `Sets the text-embeddings-inference endpoint used to rerank fused results.
The endpoint's /health route is checked unless --skip-validate is given.
Without a reachable reranker, results keep their fusion order.`,
	Args: cobra.NoArgs,
	RunE: runConfigReranker,
}

func init() {
	for _, c := range []*cobra.Command{configEmbeddingCmd, configLLMCmd} {
		c.Flags().StringVar(&providerFlags.provider, "provider", "", "provider (ollama, openai, anthropic)")
		c.Flags().StringVar(&providerFlags.model, "model", "", "model name (default per provider)")
		c.Flags().StringVar(&providerFlags.apiKey, "api-key", "", "API key for cloud providers")
		c.Flags().BoolVar(&providerFlags.skipValidate, "skip-validate", false, "do not ping the provider")
		_ = c.MarkFlagRequired("provider")
	}

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configLLMCmd)

	configRerankerCmd.Flags().StringVar(&rerankerFlags.url, "url", "", "reranker base URL")
	configRerankerCmd.Flags().StringVar(&rerankerFlags.model, "model", "", "cross-encoder model name")
	configRerankerCmd.Flags().BoolVar(&rerankerFlags.skipValidate, "skip-validate", false, "do not ping the reranker")
	_ = configRerankerCmd.MarkFlagRequired("url")
	configCmd.AddCommand(configRerankerCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(titleStyle.Render("Current Settings"))
	cmd.Println()

	section(cmd, "Retrieval")
	cmd.Printf("  Top K:         %d\n", s.Retrieval.TopK)
	cmd.Printf("  RRF k:         %d\n", s.Retrieval.RRFK)
	cmd.Printf("  Rerank:        %t (top %d)\n", s.Retrieval.Rerank, s.Retrieval.RerankTopN)

	section(cmd, "Intent")
	cmd.Printf("  Timeout:       %s\n", s.Intent.Timeout)
	cmd.Printf("  Judge:         %t (below %.2f)\n", s.Intent.Judge, s.Intent.JudgeThreshold)

	section(cmd, "Gating")
	cmd.Printf("  Max depth:     %d\n", s.Gating.MaxDepth)

	section(cmd, "Batch")
	cmd.Printf("  Concurrency:   %d\n", s.Batch.Concurrency)
	if s.Batch.RatePerSecond > 0 {
		cmd.Printf("  Rate:          %.2f/s\n", s.Batch.RatePerSecond)
	} else {
		cmd.Printf("  Rate:          unlimited\n")
	}

	section(cmd, "Embedding")
	printProvider(cmd, s.Embedding.Provider, s.Embedding.Model, s.Embedding.BaseURL, s.Embedding.APIKey,
		s.Embedding.IsConfigured())

	section(cmd, "LLM")
	printProvider(cmd, s.LLM.Provider, s.LLM.Model, s.LLM.BaseURL, s.LLM.APIKey, s.LLM.IsConfigured())

	section(cmd, "Reranker")
	if s.Reranker.IsConfigured() {
		cmd.Printf("  Endpoint:      %s (%s)\n", s.Reranker.BaseURL, s.Reranker.Model)
	} else {
		cmd.Printf("  Endpoint:      %s\n", mutedStyle.Render("(not set)"))
	}

	section(cmd, "Cache")
	if s.Cache.RedisURL != "" {
		cmd.Printf("  Redis:         %s (ttl %s)\n", s.Cache.RedisURL, s.Cache.TTL)
	} else {
		cmd.Printf("  Redis:         %s\n", mutedStyle.Render("(disabled)"))
	}

	section(cmd, "Server")
	cmd.Printf("  Address:       %s\n", s.Server.Addr)
	if s.DataDir != "" {
		cmd.Printf("  Data dir:      %s\n", s.DataDir)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Println(warningStyle.Render("Warning: " + err.Error()))
	} else {
		cmd.Println(successStyle.Render("Configuration is valid."))
	}
	return nil
}

func section(cmd *cobra.Command, name string) {
	cmd.Println(subtitleStyle.Render("[" + name + "]"))
}

func printProvider(cmd *cobra.Command, p domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider:      %s\n", p.Description())
	cmd.Printf("  Model:         %s\n", model)
	if p.IsLocal() && baseURL != "" {
		cmd.Printf("  Base URL:      %s\n", baseURL)
	}
	if p.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key:       %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key:       (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status:        %s\n", status)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errNotConfigured("config")
	}

	v, ok := configStore.Get(args[0])
	if !ok {
		return fmt.Errorf("%w: key %q is not set", domain.ErrNotFound, args[0])
	}
	if isSecretKey(args[0]) {
		if s, ok := v.(string); ok {
			v = maskAPIKey(s)
		}
	}
	cmd.Println(v)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errNotConfigured("config")
	}

	key := strings.TrimSpace(args[0])
	if key == "" {
		return fmt.Errorf("%w: empty key", domain.ErrInvalidInput)
	}
	if err := configStore.Set(key, parseConfigValue(key, args[1])); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("%s %s updated\n", successStyle.Render("✓"), key)
	return nil
}

// stringKeySuffixes mark keys whose values stay strings even when they
// look numeric.
var stringKeySuffixes = []string{"api_key", "model", "provider", "url", "addr", "dir", "ttl"}

func parseConfigValue(key, raw string) any {
	for _, suffix := range stringKeySuffixes {
		if strings.HasSuffix(key, suffix) {
			return raw
		}
	}
	if raw == "true" || raw == "false" {
		return raw == "true"
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "api_key")
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	provider, model, apiKey, err := resolveProvider(cmd, domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels())
	if err != nil {
		return err
	}
	if err := settingsService.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	if !providerFlags.skipValidate {
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateEmbeddingConfig(); err != nil {
			cmd.Println("FAILED")
			return fmt.Errorf("embedding configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	provider, model, apiKey, err := resolveProvider(cmd, domain.AllLLMProviders(), domain.DefaultLLMModels())
	if err != nil {
		return err
	}
	if err := settingsService.SetLLMProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	if !providerFlags.skipValidate {
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateLLMConfig(); err != nil {
			cmd.Println("FAILED")
			return fmt.Errorf("LLM configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("LLM provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

func runConfigReranker(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	if err := settingsService.SetReranker(rerankerFlags.url, rerankerFlags.model); err != nil {
		return fmt.Errorf("failed to configure reranker: %w", err)
	}

	if !rerankerFlags.skipValidate {
		cmd.Print("Validating configuration... ")
		if err := settingsService.ValidateRerankerConfig(); err != nil {
			cmd.Println("FAILED")
			return fmt.Errorf("reranker configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("Reranker configured: %s\n", rerankerFlags.url)
	return nil
}

func resolveProvider(
	cmd *cobra.Command, allowed []domain.AIProvider, defaults map[domain.AIProvider]string,
) (domain.AIProvider, string, string, error) {
	provider := domain.AIProvider(strings.ToLower(providerFlags.provider))
	supported := false
	for _, p := range allowed {
		if p == provider {
			supported = true
			break
		}
	}
	if !supported {
		return "", "", "", fmt.Errorf("%w: unsupported provider %q", domain.ErrInvalidInput, providerFlags.provider)
	}

	model := providerFlags.model
	if model == "" {
		model = defaults[provider]
	}

	apiKey := providerFlags.apiKey
	if apiKey == "" && provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin())
		cmd.Println()
		if apiKey == "" {
			return "", "", "", errors.New("API key is required for this provider")
		}
	}
	return provider, model, apiKey, nil
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if password, err := term.ReadPassword(int(f.Fd())); err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	line, _ := bufio.NewReader(in).ReadString('\n') //nolint:errcheck // empty input is handled by the caller
	return strings.TrimSpace(line)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
