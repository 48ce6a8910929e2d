package mainconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/appointment-intake/internal/config"
)

func TestLoadAWSConfigEndpointOverride(t *testing.T) {
	cfg := &appconfig.Config{
		AWSRegion:           "us-east-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
		AWSEndpointOverride: " http://localhost:4566/ ",
	}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg.Region != "us-east-1" {
		t.Fatalf("expected region us-east-1, got %s", awsCfg.Region)
	}

	for _, service := range []string{s3.ServiceID, sqs.ServiceID} {
		endpoint, err := awsCfg.EndpointResolverWithOptions.ResolveEndpoint(service, "us-east-1")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", service, err)
		}
		if endpoint.URL != "http://localhost:4566" {
			t.Errorf("%s: expected override endpoint, got %s", service, endpoint.URL)
		}
	}

	if _, err := awsCfg.EndpointResolverWithOptions.ResolveEndpoint("dynamodb", "us-east-1"); err == nil {
		t.Errorf("expected other services to use default resolution")
	}
}

func TestLoadAWSConfigWithoutOverride(t *testing.T) {
	awsCfg, err := LoadAWSConfig(context.Background(), &appconfig.Config{AWSRegion: "ap-south-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg.EndpointResolverWithOptions != nil {
		t.Fatalf("expected no custom resolver")
	}
}

func TestLoadAWSConfigPartialCredentials(t *testing.T) {
	_, err := LoadAWSConfig(context.Background(), &appconfig.Config{AWSRegion: "ap-south-1", AWSAccessKeyID: "only-id"})
	if !errors.Is(err, ErrPartialCredentials) {
		t.Fatalf("expected ErrPartialCredentials, got %v", err)
	}
}
