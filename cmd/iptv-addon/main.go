// Command iptv-addon serves the Stremio addon, or mints and checks descriptor tokens.
//
//	serve  Run the addon HTTP server (default when no command is given)
//	token  Mint a token for an Xtream panel (-host -user -pass) or an M3U playlist (-url)
//	check  Decode a token and probe its upstream once
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/snapetech/iptvaddon/internal/addon"
	"github.com/snapetech/iptvaddon/internal/catalog"
	"github.com/snapetech/iptvaddon/internal/config"
	"github.com/snapetech/iptvaddon/internal/descriptor"
	"github.com/snapetech/iptvaddon/internal/httpclient"
	"github.com/snapetech/iptvaddon/internal/log"
	"github.com/snapetech/iptvaddon/internal/provider"
	"github.com/snapetech/iptvaddon/internal/safeurl"
)

var errTokenArgs = errors.New("give either -url, or -host with -user and -pass")

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <serve|token|check> [flags]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  serve  Run the addon server\n")
	fmt.Fprintf(os.Stderr, "  token  Mint a descriptor token and print the install link\n")
	fmt.Fprintf(os.Stderr, "  check  Probe the upstream a token points at\n")
}

func main() {
	_ = config.LoadEnvFile(".env")
	cfg := config.Load()
	log.Setup(log.Options{Level: cfg.LogLevel})
	logger := log.WithComponent("main")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveAddr := serveCmd.String("addr", "", "Listen address (default: IPTV_ADDON_ADDR, PORT or :7000)")

	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenHost := tokenCmd.String("host", "", "Xtream panel URL, e.g. http://panel.example:8080")
	tokenUser := tokenCmd.String("user", "", "Xtream username")
	tokenPass := tokenCmd.String("pass", "", "Xtream password")
	tokenURL := tokenCmd.String("url", "", "M3U playlist URL")
	tokenPublic := tokenCmd.String("public-host", "", "Host used in the install link (default: IPTV_ADDON_PUBLIC_HOST or localhost:7000)")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkTimeout := checkCmd.Duration("timeout", 15*time.Second, "Probe timeout")

	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		_ = serveCmd.Parse(args)
		if *serveAddr != "" {
			cfg.Addr = *serveAddr
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		hc := httpclient.New(httpclient.NewHostLimits(cfg.UpstreamHostConcurrency, cfg.UpstreamHostRPS), cfg.UserAgent)
		svc := catalog.NewService(hc, timeoutsFromConfig(cfg))
		if err := addon.New(cfg, svc).Run(ctx); err != nil {
			logger.Error().Err(err).Msg("addon server failed")
			os.Exit(1)
		}

	case "token":
		_ = tokenCmd.Parse(args)
		d, err := descriptorFromFlags(*tokenHost, *tokenUser, *tokenPass, *tokenURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "token: %v\n", err)
			os.Exit(2)
		}
		host := *tokenPublic
		if host == "" {
			host = cfg.PublicHost
		}
		if host == "" {
			host = "localhost" + listenPort(cfg.Addr)
		}
		if err := printToken(os.Stdout, d, host); err != nil {
			fmt.Fprintf(os.Stderr, "token: %v\n", err)
			os.Exit(1)
		}

	case "check":
		_ = checkCmd.Parse(args)
		if checkCmd.NArg() != 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s check [-timeout 15s] <token>\n", os.Args[0])
			os.Exit(2)
		}
		d, err := descriptor.Decode(checkCmd.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "check: %v\n", err)
			os.Exit(2)
		}
		ctx, cancel := context.WithTimeout(context.Background(), *checkTimeout)
		defer cancel()
		res := provider.Probe(ctx, httpclient.NewClient(*checkTimeout), cfg.UserAgent, d)
		printProbe(os.Stdout, res)
		if res.Status != provider.StatusOK {
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}
}

func timeoutsFromConfig(cfg *config.Config) catalog.Timeouts {
	return catalog.Timeouts{
		Category:         cfg.CategoryTimeout,
		Listing:          cfg.ListingTimeout,
		Search:           cfg.SearchTimeout,
		Series:           cfg.SeriesTimeout,
		Playlist:         cfg.PlaylistTimeout,
		ManifestPlaylist: cfg.ManifestPlaylistTimeout,
	}
}

func descriptorFromFlags(host, user, pass, playlistURL string) (descriptor.Descriptor, error) {
	switch {
	case playlistURL != "" && host == "":
		p := descriptor.NewPlaylist(playlistURL)
		if !safeurl.IsHTTPOrHTTPS(p.URL) {
			return nil, fmt.Errorf("playlist URL %q is not http(s)", safeurl.Redact(p.URL))
		}
		return p, nil
	case host != "" && playlistURL == "" && user != "" && pass != "":
		x := descriptor.NewXtream(host, user, pass)
		if !safeurl.IsHTTPOrHTTPS(x.Host) {
			return nil, fmt.Errorf("panel URL %q is not http(s)", x.Host)
		}
		return x, nil
	}
	return nil, errTokenArgs
}

func printToken(w io.Writer, d descriptor.Descriptor, host string) error {
	token, err := descriptor.Encode(d)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "token:   %s\n", token)
	fmt.Fprintf(w, "install: %s\n", addon.InstallURL(host, token))
	return nil
}

func printProbe(w io.Writer, res provider.Result) {
	fmt.Fprintf(w, "url:     %s\n", res.URL)
	fmt.Fprintf(w, "status:  %s\n", res.Status)
	if res.StatusCode != 0 {
		fmt.Fprintf(w, "http:    %d\n", res.StatusCode)
	}
	fmt.Fprintf(w, "latency: %dms\n", res.LatencyMs)
	if res.Detail != "" {
		fmt.Fprintf(w, "detail:  %s\n", res.Detail)
	}
}

// listenPort returns ":port" from a listen address, or "" when it has none.
func listenPort(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 && i < len(addr)-1 {
		return addr[i:]
	}
	return ""
}
