package s3infra

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-patient-monitor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObjectAPI struct{ mock.Mock }

func (m *mockObjectAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, *in.Bucket, *in.Key)
	if out, _ := args.Get(0).(*s3.GetObjectOutput); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	args := m.Called(ctx, *in.Bucket, *in.Key, string(body))
	return &s3.PutObjectOutput{}, args.Error(0)
}

func TestGet_ReturnsBody(t *testing.T) {
	api := new(mockObjectAPI)
	api.On("GetObject", mock.Anything, "bucket", "@alerts").Return(&s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader([]byte(`[]`))),
	}, nil)
	s := NewStore(api, "bucket")

	data, err := s.Get(context.Background(), "@alerts")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestGet_NoSuchKeyIsNotFound(t *testing.T) {
	api := new(mockObjectAPI)
	api.On("GetObject", mock.Anything, "bucket", "@alerts").Return(nil, &types.NoSuchKey{})
	s := NewStore(api, "bucket")

	_, err := s.Get(context.Background(), "@alerts")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_OtherErrorsPropagate(t *testing.T) {
	api := new(mockObjectAPI)
	api.On("GetObject", mock.Anything, "bucket", "@alerts").Return(nil, errors.New("access denied"))
	s := NewStore(api, "bucket")

	_, err := s.Get(context.Background(), "@alerts")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestPut(t *testing.T) {
	api := new(mockObjectAPI)
	api.On("PutObject", mock.Anything, "bucket", "@alerts", `[{"id":"1"}]`).Return(nil)
	s := NewStore(api, "bucket")

	require.NoError(t, s.Put(context.Background(), "@alerts", []byte(`[{"id":"1"}]`)))
	api.AssertExpectations(t)
}
