package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"papertrade/internal/store"
)

// Seeds the registration key pool with freshly generated wallet keys.
// Each registration consumes one key, so the pool needs topping up from
// time to time.
func main() {
	count := flag.Int("n", 10, "number of keys to generate")
	out := flag.String("out", "keys.json", "output file")
	flag.Parse()

	keys := make([]store.Key, 0, *count)
	for i := 0; i < *count; i++ {
		priv := make([]byte, 32)
		if _, err := rand.Read(priv); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		addr := make([]byte, 20)
		if _, err := rand.Read(addr); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		keys = append(keys, store.Key{
			PrivateKey: "0x" + hex.EncodeToString(priv),
			Address:    "0x" + hex.EncodeToString(addr),
		})
	}
	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d keys to %s\n", len(keys), *out)
}
