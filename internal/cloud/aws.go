package cloud

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/pkg/errors"
)

type AWSParams struct {
	Region string
	// Endpoint overrides the service endpoint, e.g. for a local S3 clone.
	Endpoint string
}

func NewSession(p AWSParams) (*session.Session, error) {
	cfg := aws.Config{Region: aws.String(p.Region)}
	if p.Endpoint != "" {
		cfg.Endpoint = aws.String(p.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	return sess, errors.Wrap(err, "aws session")
}
