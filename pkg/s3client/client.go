package s3client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
	"strconv"
	"strings"
)

var ErrTicketNotFound = errors.New("archived ticket not found")

type S3Client struct {
	client     *minio.Client
	bucketName string
	encoder    *zstd.Encoder
	decoder    *zstd.Decoder
}

func NewS3Client(client *minio.Client, bucketName string) (*S3Client, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &S3Client{
		client:     client,
		bucketName: bucketName,
		encoder:    encoder,
		decoder:    decoder,
	}, nil
}

func objectKey(ref model.TicketRef) string {
	return fmt.Sprintf("tickets/%s/%d", ref.Category, ref.Sequence)
}

func categoryPrefix(category string) string {
	return fmt.Sprintf("tickets/%s/", category)
}

// ArchiveTicket stores a snapshot of a closed ticket. Archiving the same ticket twice overwrites
// the earlier snapshot.
func (c *S3Client) ArchiveTicket(ctx context.Context, ticket model.Ticket) error {
	data, err := c.Encode(ticket)
	if err != nil {
		return err
	}

	_, err = c.client.PutObject(ctx, c.bucketName, objectKey(ticket.Ref()), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:     "application/json",
		ContentEncoding: "zstd",
	})

	return err
}

func (c *S3Client) GetArchivedTicket(ctx context.Context, ref model.TicketRef) (model.Ticket, error) {
	object, err := c.client.GetObject(ctx, c.bucketName, objectKey(ref), minio.GetObjectOptions{})
	if err != nil {
		if isNotFoundErr(err) {
			return model.Ticket{}, ErrTicketNotFound
		} else {
			return model.Ticket{}, err
		}
	}

	defer object.Close()

	if _, err := object.Stat(); err != nil {
		if isNotFoundErr(err) {
			return model.Ticket{}, ErrTicketNotFound
		} else {
			return model.Ticket{}, err
		}
	}

	var buff bytes.Buffer
	if _, err := buff.ReadFrom(object); err != nil {
		return model.Ticket{}, err
	}

	return c.Decode(buff.Bytes())
}

func (c *S3Client) DeleteArchivedTicket(ctx context.Context, ref model.TicketRef) error {
	return c.client.RemoveObject(ctx, c.bucketName, objectKey(ref), minio.RemoveObjectOptions{})
}

// ListArchivedSequences returns every archived sequence number of a category. This lists the whole
// prefix and is only intended for maintenance tooling.
func (c *S3Client) ListArchivedSequences(ctx context.Context, category string) ([]int, error) {
	prefix := categoryPrefix(category)
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}

	sequences := make([]int, 0)
	for obj := range c.client.ListObjects(ctx, c.bucketName, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}

		sequence, err := strconv.Atoi(strings.TrimPrefix(obj.Key, prefix))
		if err != nil {
			continue
		}

		sequences = append(sequences, sequence)
	}

	return sequences, nil
}

func (c *S3Client) Encode(ticket model.Ticket) ([]byte, error) {
	data, err := json.Marshal(ticket)
	if err != nil {
		return nil, err
	}

	return c.encoder.EncodeAll(data, nil), nil
}

func (c *S3Client) Decode(data []byte) (model.Ticket, error) {
	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return model.Ticket{}, err
	}

	var ticket model.Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return model.Ticket{}, err
	}

	return ticket, nil
}

func isNotFoundErr(err error) bool {
	var resp minio.ErrorResponse
	return errors.As(err, &resp) && resp.Code == "NoSuchKey"
}
