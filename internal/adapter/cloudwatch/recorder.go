// Package cloudwatch exports query benchmark measurements as CloudWatch metrics.
package cloudwatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/greencoop/weather-etl/internal/benchmark"
	"github.com/greencoop/weather-etl/internal/domain"
)

// Metric and dimension names.
const (
	MetricQueryExecutionTime = "QueryExecutionTime"
	MetricDocumentsRetrieved = "DocumentsRetrieved"
	DimStationID             = "StationId"
	DimEnvironment           = "Environment"
)

// API is the subset of the CloudWatch client the recorder calls.
type API interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Recorder publishes one duration and one document count datum per station.
type Recorder struct {
	client      API
	namespace   string
	environment string
}

var _ benchmark.Recorder = (*Recorder)(nil)

func NewRecorder(client API, namespace, environment string) *Recorder {
	return &Recorder{client: client, namespace: namespace, environment: environment}
}

// NewRecorderFromEnv builds the client from the default AWS credential chain.
func NewRecorderFromEnv(ctx context.Context, region, namespace, environment string) (*Recorder, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewRecorder(cloudwatch.NewFromConfig(cfg), namespace, environment), nil
}

// Record skips failed queries; they carry no measurement.
func (r *Recorder) Record(ctx context.Context, res benchmark.StationResult) error {
	if res.Error != "" {
		return nil
	}
	dims := []cwtypes.Dimension{
		{Name: aws.String(DimStationID), Value: aws.String(res.Station)},
		{Name: aws.String(DimEnvironment), Value: aws.String(r.environment)},
	}
	now := domain.Now()
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(r.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName:        aws.String(MetricQueryExecutionTime),
				Dimensions:        dims,
				Timestamp:         aws.Time(now),
				Value:             aws.Float64(float64(res.Duration.Microseconds()) / 1000),
				Unit:              cwtypes.StandardUnitMilliseconds,
				StorageResolution: aws.Int32(60),
			},
			{
				MetricName:        aws.String(MetricDocumentsRetrieved),
				Dimensions:        dims,
				Timestamp:         aws.Time(now),
				Value:             aws.Float64(float64(res.DocCount)),
				Unit:              cwtypes.StandardUnitCount,
				StorageResolution: aws.Int32(60),
			},
		},
	}
	if _, err := r.client.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("put metric data for %s: %w", res.Station, err)
	}
	return nil
}
