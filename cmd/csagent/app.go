package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cloudwego/eino-ext/components/model/openai"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/tbxark/csagent/agent"
	"github.com/tbxark/csagent/config"
	"github.com/tbxark/csagent/intent"
	"github.com/tbxark/csagent/repository"
)

func newRecognizer(ctx context.Context, conf *config.Config) (intent.Recognizer, error) {
	switch conf.Intent.Recognizer {
	case "keyword":
		return intent.NewKeywordRecognizer(), nil
	case "llm":
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  conf.LLM.APIKey,
			Model:   conf.LLM.Model,
			BaseURL: conf.LLM.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init chat model: %w", err)
		}
		tool, err := intent.NewToolBasedRecognizer(cm)
		if err != nil {
			return nil, err
		}
		return intent.NewFallbackRecognizer(tool, intent.NewKeywordRecognizer()), nil
	default:
		return nil, nil
	}
}

func newFlow(ctx context.Context, conf *config.Config) (*agent.Flow, error) {
	var opts []agent.FlowOption
	r, err := newRecognizer(ctx, conf)
	if err != nil {
		return nil, err
	}
	if r != nil {
		opts = append(opts, agent.WithRecognizer(r))
	}
	if conf.Intent.HistorySize > 0 {
		opts = append(opts, agent.WithTrimmer(agent.KeepSystemLastNTrimmer{N: conf.Intent.HistorySize}))
	}
	return agent.NewFlow(ctx, opts...)
}

func newRepository(ctx context.Context, conf *config.Config) (repository.ChatRepository, func() error, error) {
	noop := func() error { return nil }
	switch conf.Repository.Driver {
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("load aws config: %w", err)
		}
		repo, err := repository.NewDynamoRepository(dynamodb.NewFromConfig(awsCfg), conf.Repository.DynamoTable)
		return repo, noop, err
	case "postgres":
		db, err := sql.Open("postgres", conf.Repository.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("db open error: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("db ping error: %w", err)
		}
		repo, err := repository.NewPostgresRepository(db)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		if err := repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return repo, db.Close, nil
	default:
		return repository.NewMemoryRepository(), noop, nil
	}
}

func newRedisClient(ctx context.Context, conf *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	return rdb, nil
}

// newAgent wires the flow, the state store with its session lock and the
// transcript recorder.
func newAgent(ctx context.Context, conf *config.Config) (*agent.Agent, func() error, error) {
	flow, err := newFlow(ctx, conf)
	if err != nil {
		return nil, nil, err
	}
	repo, closeRepo, err := newRepository(ctx, conf)
	if err != nil {
		return nil, nil, err
	}
	closers := []func() error{closeRepo}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	var rdb *redis.Client
	if conf.UsesRedis() {
		rdb, err = newRedisClient(ctx, conf)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		closers = append(closers, rdb.Close)
	}
	if conf.Repository.Cache {
		repo, err = repository.NewCachedRepository(repo, rdb)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
	}

	states := agent.NewMemoryStateReadWriter()
	var locker agent.Locker = agent.NewMemoryLocker()
	if conf.State.Driver == "redis" {
		states = agent.NewStoreStateReadWriter(agent.NewRedisCache[agent.ConversationState](rdb))
		locker = agent.NewRedisLocker(rdb, conf.State.LockTTL)
	}

	a := agent.NewAgent(
		"CustomerService",
		"An agent that tracks customer-service conversations and classifies their intent",
		flow,
		agent.WithStateReadWriter(states),
		agent.WithLocker(locker),
		agent.WithHistoryRecorder(agent.NewHistoryRecorder(repo, conf.Repository.HistoryLimit)),
	)
	return a, closeAll, nil
}
