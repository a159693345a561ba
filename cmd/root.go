package cmd

import (
	"context"
	"fmt"
	u "net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/filedown/internal/output"
	"github.com/tanq16/filedown/internal/utils"
)

var (
	connections   int
	workers       int
	chunkSizeArg  string
	attempts      int
	timeout       time.Duration
	kaTimeout     time.Duration
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	headers       []string
	cookies       []string
	debug         bool
	fileLog       bool
)

var FiledownVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "filedown [URL]",
	Short:   "filedown is a concurrent chunked HTTP downloader",
	Version: FiledownVersion,
	Args:    cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			return
		}
		if code := runHTTP(cmd, args[0], rootOutput, rootBar); code != 0 {
			os.Exit(code)
		}
	},
}

var (
	rootOutput string
	rootBar    bool
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&connections, "connections", "c", utils.DefaultConnections, "Number of concurrent chunk workers per download")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 1, "Number of downloads to run in parallel")
	rootCmd.PersistentFlags().StringVarP(&chunkSizeArg, "chunk-size", "s", "1MB", "Size of each range request (eg. 512KB, 4MB)")
	rootCmd.PersistentFlags().IntVarP(&attempts, "attempts", "r", utils.DefaultAttempts, "Attempts per chunk before the download is aborted")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", utils.DefaultTimeout, "Timeout per request (eg. 5s, 1m)")
	rootCmd.PersistentFlags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent (use 'randomize' for a random browser agent)")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	rootCmd.PersistentFlags().StringArrayVarP(&cookies, "cookie", "C", []string{}, "Cookies as name=value; can be specified multiple times")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&fileLog, "log-file", false, "Write logs to "+utils.LogFile+" instead of stderr")

	rootCmd.Flags().StringVarP(&rootOutput, "output", "o", "", "Output file path (inferred from the server or URL if not provided)")
	rootCmd.Flags().BoolVar(&rootBar, "bar", false, "Show a single progress bar instead of the live job display")

	rootCmd.AddCommand(newHTTPCmd())
	rootCmd.AddCommand(newBatchCmd())
}

func buildHTTPClientConfig() utils.HTTPClientConfig {
	agent := userAgent
	if agent == "randomize" {
		agent = utils.GetRandomUserAgent()
	}
	proxy, username, password := proxyURL, proxyUsername, proxyPassword
	// Check if proxy URL contains auth
	parsedProxy, err := u.Parse(proxy)
	if err == nil && parsedProxy.User != nil && username == "" {
		username = parsedProxy.User.Username()
		if pass, set := parsedProxy.User.Password(); set {
			password = pass
		}
		parsedProxy.User = nil
		proxy = parsedProxy.String()
	}
	return utils.HTTPClientConfig{
		Timeout:       timeout,
		KATimeout:     kaTimeout,
		ProxyURL:      proxy,
		ProxyUsername: username,
		ProxyPassword: password,
		UserAgent:     agent,
		Headers:       utils.ParseHeaderArgs(headers),
		Cookies:       utils.ParseCookieArgs(cookies),
	}
}

func parseChunkSize() int64 {
	size, err := utils.ParseBytes(chunkSizeArg)
	if err != nil || size <= 0 {
		output.PrintError(fmt.Sprintf("Invalid chunk size %q", chunkSizeArg))
		os.Exit(1)
	}
	return size
}

func validateCounts() {
	if connections < 1 || workers < 1 || attempts < 1 {
		output.PrintError("--connections, --workers and --attempts must be at least 1")
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT/SIGTERM so in-flight chunk requests unwind.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
