package config

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI SSM 最小接口，*ssm.Client 满足该接口
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ParameterGetter 按名称读取密钥
type ParameterGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ParamStore AWS SSM Parameter Store 客户端
type ParamStore struct {
	api ssmAPI
}

// NewParamStore 使用给定的 SSM API 创建客户端
func NewParamStore(api ssmAPI) (*ParamStore, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &ParamStore{api: api}, nil
}

// NewDefaultParamStore 使用默认 AWS 凭证链创建客户端
func NewDefaultParamStore(ctx context.Context) (*ParamStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("paramstore: load aws config: %w", err)
	}
	return NewParamStore(ssm.NewFromConfig(awsCfg))
}

// GetParameter 读取并解密参数
func (p *ParamStore) GetParameter(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	out, err := p.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("paramstore: parameter %q missing value", name)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// ResolveSecrets 从参数存储补齐未配置的密钥
// 只填充为空的字段，已有值（配置文件或环境变量）优先
func ResolveSecrets(ctx context.Context, cfg *Config, getter ParameterGetter) error {
	if getter == nil {
		return nil
	}

	targets := []struct {
		name string
		dst  *string
	}{
		{"openai-api-key", &cfg.AI.OpenAI.APIKey},
		{"dashscope-api-key", &cfg.AI.Alibaba.AccessKeySecret},
		{"deepseek-api-key", &cfg.AI.DeepSeek.APIKey},
		{"gemini-api-key", &cfg.AI.Gemini.APIKey},
		{"embedding-api-key", &cfg.Embedding.APIKey},
		{"jwt-secret", &cfg.Auth.JWTSecret},
		{"elastic-password", &cfg.Elastic.Password},
	}

	for _, t := range targets {
		if *t.dst != "" {
			continue
		}
		value, err := getter.GetParameter(ctx, path.Join(cfg.Secrets.Prefix, t.name))
		if err != nil {
			return err
		}
		*t.dst = value
	}
	return nil
}
