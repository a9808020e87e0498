package keygen

import (
	"crypto/rc4"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/screa/entropy-audit/pkg/engine"
)

func TestStreamKeyVectors(t *testing.T) {
	const ts = 1389781850000
	tests := []struct {
		variant engine.Variant
		want    string
	}{
		{engine.V8Lcg, "8459259a725f3e05f777dd419c65d816ab58ea1978132a09779f9cad70cf44b7"},
		{engine.PlatformLcg, "d690c2e2c1e54f257a258bf98a48508ef2ec3f5c568acf324306baea44638a20"},
		{engine.CrtCongruential, "e4e232f7b9a5c02e4f756fc3233d9f8ae697a87b85f1ca7a1aea450cb3335544"},
	}

	for _, tt := range tests {
		t.Run(tt.variant.String(), func(t *testing.T) {
			key, err := StreamKey(tt.variant, ts)
			if err != nil {
				t.Fatalf("StreamKey() error = %v", err)
			}
			if got := hex.EncodeToString(key[:]); got != tt.want {
				t.Errorf("StreamKey() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWhitenedPoolPrefix(t *testing.T) {
	pool, err := WhitenedPool(engine.V8Lcg, 1389781850000)
	if err != nil {
		t.Fatal(err)
	}
	const want = "c31bd379e0304e75edd7eb3075cc421024b66e2259f36e99c27262bba0cf8007"
	if got := hex.EncodeToString(pool[:32]); got != want {
		t.Errorf("pool[:32] = %s, want %s", got, want)
	}
	if len(pool) != PoolStreamKey {
		t.Errorf("pool length = %d", len(pool))
	}
}

func TestArc4KeystreamHasNoDiscard(t *testing.T) {
	// Classic "Key" vector: the very first keystream byte is 0xEB.
	c, err := rc4.NewCipher([]byte("Key"))
	if err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 9)
	c.XORKeyStream(out, out)
	if got := hex.EncodeToString(out); got != "eb9f7781b734ca72a7" {
		t.Errorf("keystream = %s", got)
	}
}

func TestTimestampHashKey(t *testing.T) {
	tests := []struct {
		ts   uint64
		seq  uint32
		want string
	}{
		{1389781800000, 0, "9ecc390f65ec4ca9dcbebd769f124ae7a4dad6abd08acf1990f0927580476cf3"},
		{1389781800100, 1, "fc881db014ffac964befca4066a1c7f1436ac2b331268d37ac44d827cd4a7752"},
		{1389781800200, 2, "624751a86a2f89c2bca44ea5a35e2c88fbe72811c5aded30c01434d42be60a60"},
	}
	for _, tt := range tests {
		key := TimestampHashKey(tt.ts, tt.seq)
		if got := hex.EncodeToString(key[:]); got != tt.want {
			t.Errorf("TimestampHashKey(%d, %d) = %s, want %s", tt.ts, tt.seq, got, tt.want)
		}
	}
}

func TestTimestampBufferLayout(t *testing.T) {
	buf := TimestampBuffer(1389781800000, 0)
	if got := hex.EncodeToString(buf[:8]); got != "4054739543010000" {
		t.Errorf("timestamp bytes = %s", got)
	}
	for i := 0; i < 3; i++ {
		word := buf[8+i*8 : 16+i*8]
		// Draws are scaled below 65536, so only two bytes are ever used.
		for _, b := range word[2:] {
			if b != 0 {
				t.Fatalf("draw %d has high bytes set: %x", i, word)
			}
		}
	}
}

func TestDeriveIsPure(t *testing.T) {
	for _, target := range Targets(Families, engine.Variants, PoolMnemonic128) {
		t.Run(target.String(), func(t *testing.T) {
			a, err := Derive(target, 1389781850000, 3)
			if err != nil {
				t.Fatalf("Derive() error = %v", err)
			}
			b, err := Derive(target, 1389781850000, 3)
			if err != nil {
				t.Fatalf("Derive() error = %v", err)
			}
			if a.PrivateKey != b.PrivateKey || a.Mnemonic != b.Mnemonic {
				t.Error("two derivations of the same point differ")
			}
		})
	}
}

func TestFamiliesAreDistinct(t *testing.T) {
	stream, err := Derive(Target{Family: PoolStreamCipher, Variant: engine.PlatformLcg}, 1389781800000, 0)
	if err != nil {
		t.Fatal(err)
	}
	hashed, err := Derive(Target{Family: TimestampHash}, 1389781800000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if stream.PrivateKey == hashed.PrivateKey {
		t.Error("stream and timestamp-hash families produced the same key")
	}
	if stream.Sequence != 0 || stream.Family != "pool-rc4" || hashed.Variant != "" {
		t.Errorf("unexpected point metadata: %+v / %+v", stream.Point, hashed.Point)
	}
}

func TestMnemonicFamily(t *testing.T) {
	tests := []struct {
		poolLen int
		words   int
	}{
		{PoolMnemonic128, 12},
		{PoolMnemonic192, 18},
	}
	for _, tt := range tests {
		phrase, err := Mnemonic(engine.V8Lcg, 1389781850000, tt.poolLen)
		if err != nil {
			t.Fatalf("Mnemonic(%d) error = %v", tt.poolLen, err)
		}
		if n := len(strings.Fields(phrase)); n != tt.words {
			t.Errorf("Mnemonic(%d) has %d words, want %d", tt.poolLen, n, tt.words)
		}
	}

	if _, err := Mnemonic(engine.V8Lcg, 1, 20); err == nil {
		t.Error("Mnemonic() accepted a 20-byte pool")
	}

	entropy, err := MnemonicEntropy(engine.V8Lcg, 1389781850000, PoolMnemonic128)
	if err != nil {
		t.Fatal(err)
	}
	if got := hex.EncodeToString(entropy); got != "530ca7ece0304e75edd7eb3075cc4210" {
		t.Errorf("entropy = %s", got)
	}
}

func TestParseFamily(t *testing.T) {
	if f, err := ParseFamily("BitcoinJS"); err != nil || f != PoolStreamCipher {
		t.Errorf("ParseFamily(BitcoinJS) = %v, %v", f, err)
	}
	if _, err := ParseFamily("electrum"); !errors.Is(err, ErrUnknownFamily) {
		t.Errorf("ParseFamily(electrum) error = %v", err)
	}
	list, err := ParseFamilies("rc4,ts-hash,arc4")
	if err != nil || len(list) != 2 {
		t.Errorf("ParseFamilies() = %v, %v", list, err)
	}
}

func TestTargets(t *testing.T) {
	got := Targets([]Family{TimestampHash, PoolStreamCipher}, []engine.Variant{engine.V8Lcg, engine.CrtCongruential}, 0)
	want := []string{"timestamp-hash", "pool-rc4/v8", "pool-rc4/crt"}
	if len(got) != len(want) {
		t.Fatalf("Targets() = %v", got)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("target %d = %s, want %s", i, got[i], want[i])
		}
	}
}
