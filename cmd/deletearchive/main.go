package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/config"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/s3client"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"strconv"
	"strings"
)

var (
	category  = flag.String("category", "", "category the tickets belong to")
	sequences = flag.String("sequence", "", "ticket sequence number(s) to delete, comma separated")
	all       = flag.Bool("all", false, "apply to every archived ticket in the category")
)

func main() {
	flag.Parse()
	cfg := config.Parse[config.CliConfig]()

	if *category == "" {
		panic("category must be set")
	}

	m, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})

	if err != nil {
		panic(err)
	}

	client, err := s3client.NewS3Client(m, cfg.Bucket)
	must(err)

	ctx := context.Background()

	if *all {
		archived, err := client.ListArchivedSequences(ctx, *category)
		must(err)

		for _, sequence := range archived {
			must(client.DeleteArchivedTicket(ctx, model.TicketRef{Category: *category, Sequence: sequence}))
			fmt.Printf("deleted %s#%d\n", *category, sequence)
		}
	} else if *sequences != "" {
		for _, raw := range strings.Split(*sequences, ",") {
			sequence, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				fmt.Printf("error occurred while parsing sequence %s: %v\n", raw, err)
				continue
			}

			must(client.DeleteArchivedTicket(ctx, model.TicketRef{Category: *category, Sequence: sequence}))
			fmt.Printf("deleted %s#%d\n", *category, sequence)
		}
	} else {
		panic("all or sequence flag must be set")
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
