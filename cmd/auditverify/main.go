// auditverify checks an exported audit event chain offline.
//
// Input is a CSV export of event_log_export_v (seq, prev_hash_hex,
// hash_hex, payload_canonical). The tool verifies that every row's hash
// equals sha256(prev_hash || payload_canonical), that each prev_hash
// links to the previous row's hash, and optionally that the final hash
// matches an expected head fingerprint.
package main

import (
	"bufio"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func main() {
	var (
		inPath   = flag.String("in", "", "CSV exported from event_log_export_v")
		headHash = flag.String("head", "", "expected head hash hex (optional)")
	)
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "missing -in")
		os.Exit(2)
	}

	f, err := os.Open(*inPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(2)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		fmt.Fprintln(os.Stderr, "read header:", err)
		os.Exit(2)
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, need := range []string{"seq", "prev_hash_hex", "hash_hex", "payload_canonical"} {
		if _, ok := col[need]; !ok {
			fmt.Fprintln(os.Stderr, "missing column:", need)
			os.Exit(2)
		}
	}

	var (
		lineNo   = 1
		prevHash = sha256Hex("genesis")
		lastHash string
		rows     int
	)

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			fmt.Fprintln(os.Stderr, "csv read:", err)
			os.Exit(2)
		}

		seq := rec[col["seq"]]
		prevHex := strings.ToLower(strings.TrimSpace(rec[col["prev_hash_hex"]]))
		hashHex := strings.ToLower(strings.TrimSpace(rec[col["hash_hex"]]))
		payload := rec[col["payload_canonical"]]

		if _, err := hex.DecodeString(prevHex); err != nil {
			fmt.Fprintf(os.Stderr, "line %d: invalid prev_hash_hex: %v\n", lineNo, err)
			os.Exit(1)
		}
		if _, err := hex.DecodeString(hashHex); err != nil {
			fmt.Fprintf(os.Stderr, "line %d: invalid hash_hex: %v\n", lineNo, err)
			os.Exit(1)
		}

		if prevHex != prevHash {
			fmt.Fprintf(os.Stderr, "FAIL: prev_hash mismatch at seq=%s line=%d\nexpected=%s\ngot=%s\n",
				seq, lineNo, prevHash, prevHex)
			os.Exit(1)
		}

		if want := sha256Hex(prevHex + payload); hashHex != want {
			fmt.Fprintf(os.Stderr, "FAIL: hash mismatch at seq=%s line=%d\nexpected=%s\ngot=%s\n",
				seq, lineNo, want, hashHex)
			os.Exit(1)
		}

		prevHash = hashHex
		lastHash = hashHex
		rows++
	}

	if rows == 0 {
		fmt.Fprintln(os.Stderr, "FAIL: empty export")
		os.Exit(1)
	}

	if *headHash != "" && strings.ToLower(strings.TrimSpace(*headHash)) != lastHash {
		fmt.Fprintf(os.Stderr, "FAIL: head hash mismatch\nexpected=%s\ngot=%s\n", *headHash, lastHash)
		os.Exit(1)
	}

	fmt.Printf("OK: chain verified (%d rows). head=%s\n", rows, lastHash)
}
