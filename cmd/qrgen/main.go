// Command qrgen signs scan payloads for printing as QR codes.
// It reads token rows from CSV (store_id,banner_id,item_id,lat,lng,token_id)
// and writes the same rows with a signed payload column appended, or signs a
// single token given entirely by flags.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/and161185/scanwin/internal/model"
	"github.com/and161185/scanwin/internal/token"
)

func main() {
	secret := flag.String("secret", os.Getenv("SCANWIN_HMAC_SECRET"), "HMAC secret (defaults to SCANWIN_HMAC_SECRET)")
	in := flag.String("in", "", "input CSV path; empty means single-token mode")
	out := flag.String("out", "", "output CSV path; empty means stdout")

	storeID := flag.Int("store", 0, "store id (single-token mode)")
	bannerID := flag.Int("banner", 0, "banner/campaign id (single-token mode)")
	itemID := flag.Int("item", 0, "item id (single-token mode)")
	lat := flag.Float64("lat", 0, "latitude (single-token mode)")
	lng := flag.Float64("lng", 0, "longitude (single-token mode)")
	tokenID := flag.String("token", "", "token id (single-token mode)")
	flag.Parse()

	if *secret == "" {
		fatalf("missing HMAC secret (--secret or SCANWIN_HMAC_SECRET)")
	}
	codec, err := token.NewCodec([]byte(*secret))
	if err != nil {
		fatalf("codec: %v", err)
	}

	dst := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fatalf("create %s: %v", *out, err)
		}
		defer f.Close()
		dst = f
	}

	if *in == "" {
		if *tokenID == "" {
			fatalf("single-token mode needs --token")
		}
		payload := codec.Sign(model.ScanToken{
			StoreID:  *storeID,
			BannerID: *bannerID,
			ItemID:   *itemID,
			Lat:      *lat,
			Lng:      *lng,
			TokenID:  *tokenID,
		})
		fmt.Fprintln(dst, payload)
		return
	}

	src, err := os.Open(*in)
	if err != nil {
		fatalf("open %s: %v", *in, err)
	}
	defer src.Close()

	n, err := signCSV(codec, src, dst)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Fprintf(os.Stderr, "signed %d payloads\n", n)
}

// signCSV reads token rows and writes them back with the payload appended.
// A header row is detected by a non-numeric first field and passed through.
func signCSV(codec *token.Codec, src io.Reader, dst io.Writer) (int, error) {
	r := csv.NewReader(src)
	w := csv.NewWriter(dst)

	count := 0
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) < 6 {
			return count, fmt.Errorf("line %d: want 6 columns, got %d", line, len(rec))
		}

		if _, convErr := strconv.Atoi(rec[0]); convErr != nil && line == 1 {
			if err := w.Write(append(rec[:6:6], "payload")); err != nil {
				return count, err
			}
			continue
		}

		tok, err := parseRow(rec)
		if err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		if err := w.Write(append(rec[:6:6], codec.Sign(tok))); err != nil {
			return count, err
		}
		count++
	}
	w.Flush()
	return count, w.Error()
}

func parseRow(rec []string) (model.ScanToken, error) {
	storeID, err := strconv.Atoi(rec[0])
	if err != nil {
		return model.ScanToken{}, fmt.Errorf("store_id: %w", err)
	}
	bannerID, err := strconv.Atoi(rec[1])
	if err != nil {
		return model.ScanToken{}, fmt.Errorf("banner_id: %w", err)
	}
	itemID, err := strconv.Atoi(rec[2])
	if err != nil {
		return model.ScanToken{}, fmt.Errorf("item_id: %w", err)
	}
	lat, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return model.ScanToken{}, fmt.Errorf("lat: %w", err)
	}
	lng, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return model.ScanToken{}, fmt.Errorf("lng: %w", err)
	}
	if rec[5] == "" {
		return model.ScanToken{}, fmt.Errorf("empty token_id")
	}
	return model.ScanToken{
		StoreID:  storeID,
		BannerID: bannerID,
		ItemID:   itemID,
		Lat:      lat,
		Lng:      lng,
		TokenID:  rec[5],
	}, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
