// feedcheck fetches one pair from DexScreener and prints the selected entry,
// the normalized record and the encoded ledger payload.
// Usage: go run ./cmd/feedcheck --pair ethereum:0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640
//
// With --stream it reads frames from the push endpoint instead, printing
// each until --frames have been seen or Ctrl+C.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/pairstream/internal/api"
	"github.com/rickgao/pairstream/internal/codec"
	"github.com/rickgao/pairstream/internal/config"
	"github.com/rickgao/pairstream/internal/connection"
	"github.com/rickgao/pairstream/internal/model"
	"github.com/rickgao/pairstream/internal/normalize"
)

func main() {
	pairFlag := flag.String("pair", "", "pair as chain:address[:symbol]")
	selection := flag.String("selection", "first", "result selection rule: first, address or liquidity")
	restURL := flag.String("rest-url", config.DefaultRestURL, "provider REST base URL")
	streamURL := flag.String("stream-url", config.DefaultStreamURL, "provider push base URL")
	stream := flag.Bool("stream", false, "read from the push endpoint instead of REST")
	frames := flag.Int("frames", 5, "frames to read in stream mode")
	verbose := flag.Bool("verbose", false, "print the full provider entry JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	pair, err := parsePair(*pairFlag)
	if err != nil {
		logger.Error("invalid --pair", "error", err)
		os.Exit(2)
	}

	selector, err := normalize.SelectorFor(*selection)
	if err != nil {
		logger.Error("invalid --selection", "error", err)
		os.Exit(2)
	}
	norm := normalize.New(normalize.WithSelector(selector))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *stream {
		err = runStream(ctx, *streamURL, pair, *frames, norm, *verbose, logger)
	} else {
		err = runREST(ctx, *restURL, pair, norm, *verbose, logger)
	}
	if err != nil {
		logger.Error("feedcheck failed", "error", err)
		os.Exit(1)
	}
}

func parsePair(s string) (model.PairIdentity, error) {
	if strings.Count(s, ":") == 1 {
		s += ":"
	}
	ps, err := model.ParsePairs(s)
	if err != nil {
		return model.PairIdentity{}, err
	}
	if len(ps) != 1 {
		return model.PairIdentity{}, fmt.Errorf("expected one pair, got %d", len(ps))
	}
	return ps[0], nil
}

func runREST(ctx context.Context, baseURL string, pair model.PairIdentity, norm *normalize.Normalizer, verbose bool, logger *slog.Logger) error {
	client := api.NewClient(baseURL, api.WithLogger(logger), api.WithTimeout(10*time.Second))

	resp, err := client.GetPair(ctx, pair.Chain, pair.Address)
	if err != nil {
		return err
	}
	return report(pair, resp, norm, verbose)
}

func runStream(ctx context.Context, baseURL string, pair model.PairIdentity, frames int, norm *normalize.Normalizer, verbose bool, logger *slog.Logger) error {
	cfg := connection.DefaultClientConfig()
	cfg.URL = strings.TrimRight(baseURL, "/") + "/" + pair.Chain + "/" + pair.Address

	client := connection.NewClient(cfg, logger)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	logger.Info("streaming started - press Ctrl+C to stop", "url", cfg.URL)

	for seen := 0; seen < frames; {
		select {
		case <-ctx.Done():
			return nil
		case err := <-client.Errors():
			return err
		case msg := <-client.Messages():
			seen++
			resp, err := api.ParsePairsResponse(msg.Data)
			if err != nil {
				logger.Warn("malformed frame", "error", err, "bytes", len(msg.Data))
				continue
			}
			fmt.Printf("--- frame %d at %s\n", seen, msg.ReceivedAt.Format(time.RFC3339Nano))
			if err := report(pair, resp, norm, verbose); err != nil {
				return err
			}
		}
	}
	return nil
}

func report(pair model.PairIdentity, resp *api.PairsResponse, norm *normalize.Normalizer, verbose bool) error {
	fmt.Printf("pair:      %s\n", pair.Key())
	fmt.Printf("results:   %d\n", len(resp.Pairs))

	if verbose {
		data, _ := json.MarshalIndent(resp.Pairs, "", "  ")
		fmt.Printf("entries:   %s\n", data)
	}

	rec := norm.Normalize(pair, resp)
	if rec == nil {
		fmt.Println("record:    <no usable price>")
		return nil
	}

	fmt.Printf("label:     %s (%s)\n", rec.Pair, rec.Chain)
	fmt.Printf("price:     %s (%.8f USD)\n", rec.PriceUSD, model.FromFixedPoint(rec.PriceUSD))
	fmt.Printf("liquidity: %.2f USD\n", model.FromFixedPoint(rec.LiquidityUSD))
	fmt.Printf("volume24h: %.2f USD\n", model.FromFixedPoint(rec.Volume24hUSD))
	fmt.Printf("change:    1h %d bp, 24h %d bp\n", rec.PriceChange1h, rec.PriceChange24h)

	data, err := codec.Encode(rec)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	fmt.Printf("schema_id: %s\n", codec.SchemaID(codec.Schema).Hex())
	fmt.Printf("record_id: %s\n", pair.Key().Hash().Hex())
	fmt.Printf("payload:   0x%s\n", hex.EncodeToString(data))
	return nil
}
