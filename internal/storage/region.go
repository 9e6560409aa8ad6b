package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultRegion is the Qiniu region used when none is configured (East China, Zhejiang).
const DefaultRegion = "z0"

// qiniuRegions maps Qiniu Kodo region codes to their S3-compatible region ids.
// See https://developer.qiniu.com/kodo/4088/s3-access-domainname
var qiniuRegions = map[string]string{
	"z0":             "cn-east-1",
	"cn-east-2":      "cn-east-2",
	"z1":             "cn-north-1",
	"z2":             "cn-south-1",
	"na0":            "us-north-1",
	"as0":            "ap-southeast-1",
	"ap-northeast-1": "ap-northeast-1",
}

// ResolveEndpoint returns the host:port to dial and the signing region.
// An explicit endpoint wins; otherwise region must be a Qiniu region code
// or one of the S3 region ids those codes map to.
func ResolveEndpoint(region, endpoint string) (host, signingRegion string, err error) {
	if region == "" {
		region = DefaultRegion
	}
	signingRegion = s3Region(region)

	if endpoint != "" {
		host, err = cleanEndpoint(endpoint)
		if err != nil {
			return "", "", fmt.Errorf("invalid endpoint: %w", err)
		}
		return host, signingRegion, nil
	}

	if !knownRegion(region) {
		return "", "", fmt.Errorf("unknown region %q and no endpoint configured", region)
	}
	return fmt.Sprintf("s3.%s.qiniucs.com", signingRegion), signingRegion, nil
}

func s3Region(region string) string {
	if r, ok := qiniuRegions[strings.ToLower(region)]; ok {
		return r
	}
	return region
}

func knownRegion(region string) bool {
	region = strings.ToLower(region)
	if _, ok := qiniuRegions[region]; ok {
		return true
	}
	for _, r := range qiniuRegions {
		if r == region {
			return true
		}
	}
	return false
}

// cleanEndpoint removes protocol and path from endpoint URL to get host:port format
func cleanEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("endpoint cannot be empty")
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if strings.Contains(endpoint, "/") {
			return "", fmt.Errorf("endpoint contains path but no protocol")
		}
		return endpoint, nil
	}

	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint URL: %w", err)
	}

	if parsedURL.Path != "" && parsedURL.Path != "/" {
		return "", fmt.Errorf("endpoint URL cannot have paths, only host:port is allowed (got path: %s)", parsedURL.Path)
	}

	return parsedURL.Host, nil
}
