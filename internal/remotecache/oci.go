package remotecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	log "github.com/sirupsen/logrus"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/retry"

	"getcmake/internal/archive"
)

// Media types of cache entries pushed to a registry.
const (
	ArtifactType    = "application/vnd.getcmake.bundle.v1"
	BundleMediaType = "application/vnd.getcmake.bundle.v1.tar+zstd"
	tagPrefix       = "getcmake-"
)

var tagPattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9._-]{0,127}$`)

// OCI stores bundles as single-layer artifacts in an OCI registry, one tag
// per key.
type OCI struct {
	Target  oras.Target
	TempDir string
	Logger  log.FieldLogger
}

// NewOCI wraps any oras target, such as a remote repository or an in-memory
// store.
func NewOCI(target oras.Target, logger log.FieldLogger) *OCI {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &OCI{Target: target, Logger: logger}
}

// RegistryOptions configures access to a remote repository.
type RegistryOptions struct {
	PlainHTTP bool
	Username  string
	Token     string
	UserAgent string
}

// NewRegistry opens the repository named by reference (for example
// "ghcr.io/acme/toolcache"). Without a token, credentials come from the
// docker config when one is available.
func NewRegistry(reference string, opts RegistryOptions, logger log.FieldLogger) (*OCI, error) {
	repo, err := remote.NewRepository(reference)
	if err != nil {
		return nil, fmt.Errorf("parse reference %q: %w", reference, err)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "getcmake/1.0"
	}

	var store credentials.Store
	if opts.Token != "" {
		store = staticStore{host: repo.Reference.Host(), cred: tokenCredential(opts.Username, opts.Token)}
	} else if docker, err := credentials.NewStoreFromDocker(credentials.StoreOptions{}); err == nil {
		store = docker
	}

	repo.PlainHTTP = opts.PlainHTTP
	repo.Client = &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Credential: func(ctx context.Context, hostport string) (auth.Credential, error) {
			if store == nil {
				return auth.EmptyCredential, nil
			}
			return store.Get(ctx, hostport)
		},
		Header: http.Header{"User-Agent": []string{opts.UserAgent}},
	}
	return NewOCI(repo, logger), nil
}

func tokenCredential(username, token string) auth.Credential {
	if username != "" {
		return auth.Credential{Username: username, Password: token}
	}
	return auth.Credential{AccessToken: token}
}

// staticStore serves one credential for one registry host.
type staticStore struct {
	host string
	cred auth.Credential
}

func (s staticStore) Get(_ context.Context, serverAddress string) (auth.Credential, error) {
	if serverAddress == s.host {
		return s.cred, nil
	}
	return auth.EmptyCredential, nil
}

func (s staticStore) Put(context.Context, string, auth.Credential) error {
	return errors.New("static credentials are read-only")
}

func (s staticStore) Delete(context.Context, string) error {
	return errors.New("static credentials are read-only")
}

// Tag returns the registry tag used for key. Every '-' is spelled 'n', so the
// negative key -42 becomes getcmake-n42.
func Tag(key string) string {
	return tagPrefix + strings.ReplaceAll(key, "-", "n")
}

func (o *OCI) tagFor(paths []string, key string) (string, error) {
	if err := validate(paths, key); err != nil {
		return "", err
	}
	tag := Tag(key)
	if !tagPattern.MatchString(tag) {
		return "", fmt.Errorf("%w: key %q does not form a valid tag", ErrInvalidRequest, key)
	}
	return tag, nil
}

// Restore implements Cache.
func (o *OCI) Restore(ctx context.Context, paths []string, key string) (string, bool, error) {
	tag, err := o.tagFor(paths, key)
	if err != nil {
		return "", false, err
	}

	manifestDesc, err := o.Target.Resolve(ctx, tag)
	if err != nil {
		if errors.Is(err, errdef.ErrNotFound) {
			o.Logger.Debugf("no artifact tagged %s", tag)
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolve %s: %w", tag, err)
	}

	raw, err := content.FetchAll(ctx, o.Target, manifestDesc)
	if err != nil {
		return "", false, fmt.Errorf("fetch manifest %s: %w", manifestDesc.Digest, err)
	}
	var manifest ocispec.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return "", false, fmt.Errorf("decode manifest %s: %w", manifestDesc.Digest, err)
	}

	layer, ok := bundleLayer(manifest)
	if !ok {
		return "", false, fmt.Errorf("artifact %s has no %s layer", tag, BundleMediaType)
	}

	rc, err := o.Target.Fetch(ctx, layer)
	if err != nil {
		return "", false, fmt.Errorf("fetch layer %s: %w", layer.Digest, err)
	}
	defer rc.Close()

	vr := content.NewVerifyReader(rc, layer)
	if err := archive.ReadBundle(vr, paths); err != nil {
		return "", false, fmt.Errorf("restore %s: %w", tag, err)
	}
	if _, err := io.Copy(io.Discard, vr); err != nil {
		return "", false, fmt.Errorf("drain layer %s: %w", layer.Digest, err)
	}
	if err := vr.Verify(); err != nil {
		return "", false, fmt.Errorf("verify layer %s: %w", layer.Digest, err)
	}
	return key, true, nil
}

func bundleLayer(m ocispec.Manifest) (ocispec.Descriptor, bool) {
	for _, l := range m.Layers {
		if l.MediaType == BundleMediaType {
			return l, true
		}
	}
	return ocispec.Descriptor{}, false
}

// Save implements Cache. An existing tag is a reservation conflict.
func (o *OCI) Save(ctx context.Context, paths []string, key string) (int64, error) {
	tag, err := o.tagFor(paths, key)
	if err != nil {
		return 0, validationError(key, err)
	}

	if _, err := o.Target.Resolve(ctx, tag); err == nil {
		return 0, &SaveError{Kind: KindReserveConflict, Key: key, Err: fmt.Errorf("tag %s already exists", tag)}
	} else if !errors.Is(err, errdef.ErrNotFound) {
		return 0, &SaveError{Kind: KindOther, Key: key, Err: fmt.Errorf("resolve %s: %w", tag, err)}
	}

	layer, err := o.pushBundle(ctx, paths)
	if err != nil {
		return 0, &SaveError{Kind: KindOther, Key: key, Err: err}
	}

	manifestDesc, err := oras.PackManifest(ctx, o.Target, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers: []ocispec.Descriptor{layer},
		ManifestAnnotations: map[string]string{
			"dev.getcmake.key": key,
		},
	})
	if err != nil {
		return 0, &SaveError{Kind: KindOther, Key: key, Err: fmt.Errorf("pack manifest: %w", err)}
	}
	if err := o.Target.Tag(ctx, manifestDesc, tag); err != nil {
		return 0, &SaveError{Kind: KindOther, Key: key, Err: fmt.Errorf("tag %s: %w", tag, err)}
	}

	o.Logger.Debugf("pushed %s (%d bytes) as %s", layer.Digest, layer.Size, tag)
	return layer.Size, nil
}

// pushBundle spools the bundle to a temp file so its digest and size are
// known before the upload starts.
func (o *OCI) pushBundle(ctx context.Context, paths []string) (ocispec.Descriptor, error) {
	tmp, err := os.CreateTemp(o.TempDir, "getcmake-bundle-*.tar.zst")
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("create temp bundle: %w", err)
	}
	defer func() {
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	digester := digest.Canonical.Digester()
	if err := archive.WriteBundle(io.MultiWriter(tmp, digester.Hash()), paths); err != nil {
		return ocispec.Descriptor{}, err
	}
	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("size bundle: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("rewind bundle: %w", err)
	}

	desc := ocispec.Descriptor{
		MediaType: BundleMediaType,
		Digest:    digester.Digest(),
		Size:      size,
	}
	if err := o.Target.Push(ctx, desc, tmp); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
		return ocispec.Descriptor{}, fmt.Errorf("push layer: %w", err)
	}
	return desc, nil
}
