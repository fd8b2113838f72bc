package prover

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// Parameter file names under a mirror base URL.
const (
	SpendParamsFile  = "pivx-spend.params"
	OutputParamsFile = "pivx-output.params"
)

// maxParamsSize bounds a downloaded parameter file.
const maxParamsSize = 512 << 20

// Loader produces prover parameters. It is called at most once per
// successful Handle initialization.
type Loader interface {
	Load(ctx context.Context) (*Params, error)
}

// Checksums are hex SHA-256 digests of the two parameter files.
type Checksums struct {
	Spend  string `yaml:"spend" json:"spend"`
	Output string `yaml:"output" json:"output"`
}

// IsZero reports whether no checksum is configured.
func (c Checksums) IsZero() bool {
	return c.Spend == "" && c.Output == ""
}

// Verify checks both files against the configured digests.
func (c Checksums) Verify(spend, output []byte) error {
	if err := verifyChecksum("spend", c.Spend, spend); err != nil {
		return err
	}
	return verifyChecksum("output", c.Output, output)
}

// Checksum returns the hex SHA-256 digest of a parameter file.
func Checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func verifyChecksum(name, want string, b []byte) error {
	if want == "" {
		return shield.Prover(shield.ErrParamsChecksum, name+" checksum is not configured", nil)
	}
	if got := Checksum(b); !strings.EqualFold(got, want) {
		return shield.Prover(shield.ErrParamsChecksum, fmt.Sprintf("%s params: got %s, want %s", name, got, want), nil)
	}
	return nil
}

// SetupLoader runs a local trusted setup. For tests and development only.
type SetupLoader struct{}

// Load implements Loader.
func (SetupLoader) Load(context.Context) (*Params, error) {
	return Setup()
}

// BytesLoader decodes parameters already in memory. When Checksums is set
// both files are verified before decoding.
type BytesLoader struct {
	Spend     []byte
	Output    []byte
	Checksums Checksums
}

// Load implements Loader.
func (l *BytesLoader) Load(context.Context) (*Params, error) {
	if !l.Checksums.IsZero() {
		if err := l.Checksums.Verify(l.Spend, l.Output); err != nil {
			return nil, err
		}
	}
	return ParseParams(l.Spend, l.Output)
}

// FileLoader reads parameters from disk.
type FileLoader struct {
	SpendPath  string
	OutputPath string
	Checksums  Checksums
}

// Load implements Loader.
func (l *FileLoader) Load(ctx context.Context) (*Params, error) {
	spend, err := os.ReadFile(l.SpendPath)
	if err != nil {
		return nil, shield.Prover(shield.ErrParamsFetch, "reading spend params", err)
	}
	output, err := os.ReadFile(l.OutputPath)
	if err != nil {
		return nil, shield.Prover(shield.ErrParamsFetch, "reading output params", err)
	}
	return (&BytesLoader{Spend: spend, Output: output, Checksums: l.Checksums}).Load(ctx)
}

// URLLoader downloads parameters from the first mirror that serves both
// files with the expected checksums.
type URLLoader struct {
	// Mirrors are base URLs tried in order.
	Mirrors   []string
	Checksums Checksums
	Client    *http.Client
}

// NewURLLoader creates a loader with an HTTP client using timeout.
func NewURLLoader(mirrors []string, sums Checksums, timeout time.Duration) *URLLoader {
	return &URLLoader{Mirrors: mirrors, Checksums: sums, Client: &http.Client{Timeout: timeout}}
}

// Load implements Loader.
func (l *URLLoader) Load(ctx context.Context) (*Params, error) {
	spend, output, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return ParseParams(spend, output)
}

// fetch returns the first pair of files that passes verification.
func (l *URLLoader) fetch(ctx context.Context) (spend, output []byte, err error) {
	if len(l.Mirrors) == 0 {
		return nil, nil, shield.Prover(shield.ErrParamsFetch, "no mirrors configured", nil)
	}
	if l.Checksums.IsZero() {
		return nil, nil, shield.Prover(shield.ErrParamsChecksum, "downloads require checksums", nil)
	}

	var errs []error
	for _, mirror := range l.Mirrors {
		spend, output, err = l.fetchMirror(ctx, mirror)
		if err == nil {
			err = l.Checksums.Verify(spend, output)
		}
		if err == nil {
			return spend, output, nil
		}
		if ctx.Err() != nil {
			return nil, nil, shield.Prover(shield.ErrParamsFetch, "fetch cancelled", ctx.Err())
		}
		log.Warn("Parameter mirror failed", "mirror", mirror, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", mirror, err))
	}
	return nil, nil, shield.Prover(shield.ErrParamsFetch, "every mirror failed", errors.Join(errs...))
}

func (l *URLLoader) fetchMirror(ctx context.Context, base string) (spend, output []byte, err error) {
	base = strings.TrimSuffix(base, "/")
	if spend, err = l.get(ctx, base+"/"+SpendParamsFile); err != nil {
		return nil, nil, err
	}
	if output, err = l.get(ctx, base+"/"+OutputParamsFile); err != nil {
		return nil, nil, err
	}
	return spend, output, nil
}

func (l *URLLoader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxParamsSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxParamsSize {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", url, maxParamsSize)
	}
	log.Debug("Fetched parameters", "url", url, "bytes", len(body))
	return body, nil
}
