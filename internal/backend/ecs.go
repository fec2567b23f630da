package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/me/flowagent/pkg/model"
)

// ECSAPI is the slice of the ECS client the backend uses.
type ECSAPI interface {
	RunTask(ctx context.Context, params *ecs.RunTaskInput, optFns ...func(*ecs.Options)) (*ecs.RunTaskOutput, error)
}

// ECSConfig configures the ECS backend.
type ECSConfig struct {
	Cluster        string            // ECS cluster name or ARN
	TaskDefinition string            // Task definition family or ARN
	ContainerName  string            // Container receiving env overrides
	Subnets        []string          // awsvpc subnets, optional
	Env            map[string]string // Agent-level environment overrides
}

// ECS deploys flow runs as AWS ECS tasks.
type ECS struct {
	api    ECSAPI
	cfg    ECSConfig
	logger *slog.Logger
}

// NewECS creates an ECS backend using the default AWS credential chain.
func NewECS(ctx context.Context, cfg ECSConfig, logger *slog.Logger) (*ECS, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newECSWithAPI(ecs.NewFromConfig(awsCfg), cfg, logger), nil
}

func newECSWithAPI(api ECSAPI, cfg ECSConfig, logger *slog.Logger) *ECS {
	if cfg.ContainerName == "" {
		cfg.ContainerName = "flow"
	}
	return &ECS{
		api:    api,
		cfg:    cfg,
		logger: logger.With("component", "backend", "backend", "ecs"),
	}
}

func (e *ECS) Name() string { return "ecs" }

// Deploy launches the flow run as an ECS task and returns its ARN as
// metadata.
func (e *ECS) Deploy(ctx context.Context, flowRun *model.FlowRun) (string, error) {
	env := make([]ecstypes.KeyValuePair, 0, len(e.cfg.Env)+1)
	for k, v := range e.cfg.Env {
		env = append(env, ecstypes.KeyValuePair{Name: aws.String(k), Value: aws.String(v)})
	}
	env = append(env, ecstypes.KeyValuePair{
		Name:  aws.String("FLOW_RUN_ID"),
		Value: aws.String(flowRun.ID),
	})

	input := &ecs.RunTaskInput{
		Cluster:        aws.String(e.cfg.Cluster),
		TaskDefinition: aws.String(e.cfg.TaskDefinition),
		Count:          aws.Int32(1),
		Overrides: &ecstypes.TaskOverride{
			ContainerOverrides: []ecstypes.ContainerOverride{
				{Name: aws.String(e.cfg.ContainerName), Environment: env},
			},
		},
	}
	if len(e.cfg.Subnets) > 0 {
		input.LaunchType = ecstypes.LaunchTypeFargate
		input.NetworkConfiguration = &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        e.cfg.Subnets,
				AssignPublicIp: ecstypes.AssignPublicIpEnabled,
			},
		}
	}

	out, err := e.api.RunTask(ctx, input)
	if err != nil {
		return "", fmt.Errorf("run task for flow run %s: %w", flowRun.ID, err)
	}
	if len(out.Failures) > 0 {
		f := out.Failures[0]
		return "", fmt.Errorf("run task for flow run %s: %s: %s",
			flowRun.ID, aws.ToString(f.Reason), aws.ToString(f.Detail))
	}
	if len(out.Tasks) == 0 {
		return "", fmt.Errorf("run task for flow run %s: no task started", flowRun.ID)
	}

	arn := aws.ToString(out.Tasks[0].TaskArn)
	e.logger.Debug("flow run launched", "flow_run", flowRun.ID, "task_arn", arn)
	return fmt.Sprintf("Task ARN: %s", arn), nil
}

// Heartbeat is a no-op for the ECS backend.
func (e *ECS) Heartbeat(ctx context.Context) error { return nil }
