package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailtriage/mailtriage/internal/classifier"
	"github.com/mailtriage/mailtriage/internal/config"
	"github.com/mailtriage/mailtriage/internal/extract"
	"github.com/mailtriage/mailtriage/internal/triage"
	"github.com/mailtriage/mailtriage/internal/web"
)

var cfgFile string

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "mailtriage",
		Short: "mailtriage - classify emails and suggest replies",
		Long: `mailtriage sorts Portuguese emails into Productive (needs action) and
Unproductive (no action needed) and drafts a reply for each one.

Text can be typed, uploaded (.txt, .eml, .html, .pdf, images via OCR) or
read straight from an IMAP inbox.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mailtriage/config.yaml)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(corpusCmd())
	rootCmd.AddCommand(triageCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newAnalyzer(cfg *config.Config) (*triage.Analyzer, error) {
	analyzer, err := triage.NewAnalyzer(classifier.Options{
		C:         cfg.Classifier.C,
		MaxIter:   cfg.Classifier.MaxIter,
		Tolerance: cfg.Classifier.Tolerance,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to train classifier: %w", err)
	}
	return analyzer, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func initCmd() *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file",
		Long:  "Write a configuration file with server, inbox and reply delivery settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(defaults)
		},
	}

	cmd.Flags().BoolVar(&defaults, "defaults", false, "Write the default configuration without prompting")

	return cmd
}

func runInit(defaults bool) error {
	configPath := resolveConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	cfg := config.Default()

	if !defaults {
		reader := bufio.NewReader(os.Stdin)

		fmt.Println("mailtriage configuration")
		fmt.Println("========================")
		fmt.Println()

		if port := prompt(reader, fmt.Sprintf("Web server port [%d]: ", cfg.Server.Port)); port != "" {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("invalid port %q", port)
			}
			cfg.Server.Port = p
		}

		fmt.Println()
		if strings.HasPrefix(strings.ToLower(prompt(reader, "Triage an IMAP inbox? (y/N): ")), "y") {
			cfg.Inbox.Enabled = true
			cfg.Inbox.Provider = promptDefault(reader, "  Provider (gmail/outlook/imap)", "gmail")
			if cfg.Inbox.Provider == "imap" {
				cfg.Inbox.Server = prompt(reader, "  IMAP server: ")
				cfg.Inbox.Port = 993
			}
			cfg.Inbox.Email = prompt(reader, "  Mailbox address: ")
			cfg.Inbox.Password = prompt(reader, "  App password: ")
		}

		fmt.Println()
		if strings.HasPrefix(strings.ToLower(prompt(reader, "Send generated replies? (y/N): ")), "y") {
			cfg.Email.Provider = promptDefault(reader, "  Provider (smtp/resend/sendgrid)", "smtp")
			cfg.Email.From = prompt(reader, "  Reply from address: ")
			switch cfg.Email.Provider {
			case "smtp":
				cfg.Email.SMTP.Host = promptDefault(reader, "  SMTP host", "smtp.gmail.com")
				cfg.Email.SMTP.Port = 465
				cfg.Email.SMTP.UseTLS = true
				cfg.Email.SMTP.Username = prompt(reader, "  SMTP username: ")
				cfg.Email.SMTP.Password = prompt(reader, "  SMTP password: ")
			default:
				cfg.Email.APIKey = prompt(reader, "  API key: ")
			}
		}

		// Fill provider servers (gmail/outlook) for the answers above
		cfg.ApplyDefaults()
	}

	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Printf("Configuration saved to: %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit the config file if needed")
	fmt.Println("  2. Run 'mailtriage classify \"texto do email\"' to try the classifier")
	fmt.Println("  3. Run 'mailtriage serve --open' for the web interface")
	fmt.Println("  4. Run 'mailtriage triage --dry-run' to triage your inbox")

	return nil
}

func prompt(reader *bufio.Reader, message string) string {
	fmt.Print(message)
	input, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(input)
}

func promptDefault(reader *bufio.Reader, message, def string) string {
	if v := prompt(reader, fmt.Sprintf("%s [%s]: ", message, def)); v != "" {
		return v
	}
	return def
}

func serveCmd() *cobra.Command {
	var port int
	var host string
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface and JSON API",
		Long: `Start an HTTP server with a browser page for pasting or uploading
emails and a JSON API under /api/v1 for other applications.

The classifier is trained once at startup; requests never modify it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, host, port, open)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config, 8080)")
	cmd.Flags().StringVar(&host, "host", "", "Address to bind (default from config, 127.0.0.1)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the interface in the default browser")

	return cmd
}

func runServe(cmd *cobra.Command, host string, port int, open bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = host
	}

	start := time.Now()
	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}
	model := analyzer.Classifier().Model()
	fmt.Printf("Classifier ready in %s (%d features, %d iterations)\n",
		time.Since(start).Round(time.Millisecond), model.Vectorizer().NumFeatures(), model.Iterations())

	server, err := web.NewServer(cfg, analyzer, extract.New(cfg.Extract))
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	return server.Start(open)
}
