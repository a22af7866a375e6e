// Package catalog fetches the shard catalog document from a remote or local
// source. The document is the YAML `sharding` section of the configuration
// and replaces the locally configured one when present.
//
// Supported locations:
//
//	s3://bucket/path/catalog.yaml
//	gs://bucket/path/catalog.yaml
//	ssm://talentshard/catalog      (SSM parameter /talentshard/catalog)
//	./catalog.yaml                 (local file)
package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/talentshard/internal/config"
	apperrors "github.com/zzenonn/talentshard/internal/errors"
	"github.com/zzenonn/talentshard/internal/repository/objectstore"
)

// Source returns the raw catalog document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// RepositoryFactory creates object repositories for bucket locations.
type RepositoryFactory interface {
	CreateRepository(config objectstore.BucketConfig) (objectstore.ObjectRepository, error)
}

// SSMAPI is the subset of the SSM client used to read the catalog parameter.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// FileSource reads the catalog from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return data, nil
}

func (s FileSource) String() string {
	return s.Path
}

// ObjectSource reads the catalog from an S3 or GCS object.
type ObjectSource struct {
	Repo  objectstore.ObjectRepository
	Key   string
	Quiet bool
}

func (s ObjectSource) Fetch(ctx context.Context) ([]byte, error) {
	rc, err := s.Repo.Download(ctx, s.Key, s.Quiet)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog object: %w", err)
	}
	return data, nil
}

func (s ObjectSource) String() string {
	scheme := "s3"
	if s.Repo.GetStorageType() == string(objectstore.GCSType) {
		scheme = "gs"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, s.Repo.GetBucketName(), s.Key)
}

// ParameterSource reads the catalog from an SSM parameter. SecureString
// parameters are decrypted.
type ParameterSource struct {
	Client SSMAPI
	Name   string
}

func (s ParameterSource) Fetch(ctx context.Context) ([]byte, error) {
	out, err := s.Client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.Name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get parameter %s: %w", s.Name, err)
	}
	if out.Parameter == nil {
		return nil, apperrors.FetchingResourceError("catalog parameter")
	}
	return []byte(aws.ToString(out.Parameter.Value)), nil
}

func (s ParameterSource) String() string {
	return "ssm://" + strings.TrimPrefix(s.Name, "/")
}

// Resolve maps a location string to a Source. Clients that a location does
// not need may be nil.
func Resolve(location string, repos RepositoryFactory, ssmClient SSMAPI, quiet bool) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, apperrors.ConfigNotSetError("catalog.source")
	}

	scheme, rest, ok := strings.Cut(location, "://")
	if !ok {
		return FileSource{Path: location}, nil
	}

	switch strings.ToLower(scheme) {
	case "s3", "gs":
		if repos == nil {
			return nil, fmt.Errorf("%w: no object store configured for %s", apperrors.ErrUnsupportedCatalogSource, location)
		}
		bucket, key, err := objectstore.ParseObjectLocation(location)
		if err != nil {
			return nil, err
		}
		repo, err := repos.CreateRepository(bucket)
		if err != nil {
			return nil, err
		}
		return ObjectSource{Repo: repo, Key: key, Quiet: quiet}, nil
	case "ssm":
		if ssmClient == nil {
			return nil, fmt.Errorf("%w: no SSM client configured for %s", apperrors.ErrUnsupportedCatalogSource, location)
		}
		name := strings.Trim(rest, "/")
		if name == "" {
			return nil, fmt.Errorf("%w: empty parameter name", apperrors.ErrUnsupportedCatalogSource)
		}
		if strings.Contains(name, "/") {
			name = "/" + name
		}
		return ParameterSource{Client: ssmClient, Name: name}, nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedCatalogSource, scheme)
	}
}

// Load fetches and parses the catalog document.
func Load(ctx context.Context, src Source) (config.ShardingConfig, error) {
	data, err := src.Fetch(ctx)
	if err != nil {
		return config.ShardingConfig{}, err
	}

	sharding, err := config.ParseCatalog(data)
	if err != nil {
		return config.ShardingConfig{}, fmt.Errorf("invalid catalog from %s: %w", src, err)
	}

	log.Infof("Loaded %d shard definitions from %s", len(sharding.Shards), src)
	return sharding, nil
}
