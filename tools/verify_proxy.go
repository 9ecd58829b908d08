// Command verify_proxy checks that the PROXY used for scraping hides the
// real address and that Google Maps answers through it.
//
//	go run ./tools -maps
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/errgroup"

	"github.com/gosom/selfstorage-scraper/browser"
	"github.com/gosom/selfstorage-scraper/gmaps"
)

var ipServices = []string{
	"https://api.ipify.org",
	"https://icanhazip.com",
	"https://ifconfig.me/ip",
}

func main() {
	_ = godotenv.Load()

	checkMaps := flag.Bool("maps", false, "also open a Google Maps search through the proxy")
	area := flag.String("area", "Sydney", "area used for the Google Maps check")
	flag.Parse()

	if err := run(context.Background(), os.Getenv("PROXY"), *checkMaps, *area); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, rawProxy string, checkMaps bool, area string) error {
	if rawProxy == "" {
		return errors.New("no PROXY variable found in the environment or .env")
	}

	proxy, err := browser.ParseProxy(rawProxy)
	if err != nil {
		return err
	}

	proxyURL, err := url.Parse(proxy.Server)
	if err != nil {
		return err
	}

	if proxy.Username != nil {
		proxyURL.User = url.UserPassword(*proxy.Username, deref(proxy.Password))
	}

	fmt.Printf("Checking addresses with and without %s\n", proxy.Server)

	var realIP, proxyIP string

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		realIP, err = publicIP(gctx, nil)
		if err != nil {
			return fmt.Errorf("real address: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		var err error

		proxyIP, err = publicIP(gctx, proxyURL)
		if err != nil {
			return fmt.Errorf("address through proxy: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("Real IP:  %s\nProxy IP: %s\n", realIP, proxyIP)

	if realIP == proxyIP {
		return errors.New("addresses are the same, the proxy is not in use")
	}

	fmt.Println("✅ proxy hides the real address")

	if !checkMaps {
		return nil
	}

	return mapsReachable(ctx, proxy, area)
}

func publicIP(ctx context.Context, proxy *url.URL) (string, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	if proxy != nil {
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}

	var errs []error

	for _, service := range ipServices {
		ip, err := fetchIP(ctx, client, service)
		if err == nil && ip != "" {
			return ip, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", service, err))
	}

	return "", errors.Join(errs...)
}

func fetchIP(ctx context.Context, client *http.Client, service string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, service, http.NoBody)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(body)), nil
}

// mapsReachable opens a search through the proxy and looks for the results
// feed or a challenge page.
func mapsReachable(ctx context.Context, proxy *playwright.Proxy, area string) error {
	launcher := browser.New(browser.WithProxy(proxy), browser.WithHeadful())
	defer func() { _ = launcher.Close() }()

	sess, err := launcher.Open(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = sess.Close() }()

	cfg := gmaps.DefaultConfig()

	target := fmt.Sprintf("%s/search/%s?hl=%s", cfg.BaseURL, url.PathEscape(cfg.Query(area)), cfg.LangCode)
	fmt.Printf("Opening %s\n", target)

	page := sess.Page()

	if err := page.Goto(target, cfg.NavigationTimeout); err != nil {
		return err
	}

	if strings.Contains(page.URL(), "/sorry/") {
		return errors.New("google answered with a challenge page, the proxy address is flagged")
	}

	deadline := time.Now().Add(cfg.FeedTimeout)

	for time.Now().Before(deadline) {
		feeds, err := page.QueryAll(`div[role='feed']`)
		if err == nil && len(feeds) > 0 {
			fmt.Println("✅ results feed found")

			return nil
		}

		time.Sleep(cfg.PollInterval)
	}

	return errors.New("results feed not found")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
