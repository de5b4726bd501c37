package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const jsonContentType = "application/json"

// PutJSON encodes v and stores it under objectName
func (c *Client) PutJSON(ctx context.Context, objectName string, v any) (int64, error) {
	if err := c.checkClosed(); err != nil {
		return 0, err
	}
	if err := validObjectName(objectName); err != nil {
		return 0, WrapError("PutJSON", err, c.config.Bucket, objectName)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return 0, WrapError("PutJSON", fmt.Errorf("encode: %w", err), c.config.Bucket, objectName)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	info, err := c.client.PutObject(ctx, c.config.Bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: jsonContentType})
	if err != nil {
		return 0, WrapError("PutJSON", err, c.config.Bucket, objectName)
	}

	c.logger.Debug("object stored",
		zap.String("object", objectName),
		zap.Int64("size", info.Size),
	)
	return info.Size, nil
}

// GetJSON reads objectName and decodes it into v
func (c *Client) GetJSON(ctx context.Context, objectName string, v any) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if err := validObjectName(objectName); err != nil {
		return WrapError("GetJSON", err, c.config.Bucket, objectName)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	obj, err := c.client.GetObject(ctx, c.config.Bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return WrapError("GetJSON", err, c.config.Bucket, objectName)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if IsNotFound(err) {
			return WrapError("GetJSON", fmt.Errorf("%w: %v", ErrObjectNotFound, err), c.config.Bucket, objectName)
		}
		return WrapError("GetJSON", err, c.config.Bucket, objectName)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return WrapError("GetJSON", fmt.Errorf("decode: %w", err), c.config.Bucket, objectName)
	}
	return nil
}

// Remove deletes objectName
func (c *Client) Remove(ctx context.Context, objectName string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if err := c.client.RemoveObject(ctx, c.config.Bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return WrapError("Remove", err, c.config.Bucket, objectName)
	}
	return nil
}

func validObjectName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "..") {
		return ErrInvalidObjectName
	}
	return nil
}
