package main

import (
	"context"
	"fmt"

	"github.com/pubshare/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// demoPublications 是 seed-demo 写入的示例数据
var demoPublications = []struct {
	fields    service.PublicationFields
	coAuthors []service.CoAuthorFields
}{
	{
		fields: service.PublicationFields{
			Title:           "Sparse Attention for Long Document Retrieval",
			Type:            "Conference Paper",
			Abstract:        "We study **sparse attention** patterns for retrieving passages from documents longer than 100k tokens.",
			PublicationDate: "2024-05-12",
			Conference:      "SIGIR",
			Pages:           "112-121",
			Keywords:        "retrieval, attention, neural",
			Public:          true,
		},
		coAuthors: []service.CoAuthorFields{
			{Name: "Ada Lovelace", Email: "ada@example.org", Institution: "Analytical Engines Lab", Order: 1, IsCorresponding: true},
			{Name: "Alan Turing", Institution: "Bletchley Park", Order: 2},
		},
	},
	{
		fields: service.PublicationFields{
			Title:           "A Survey of Consensus Protocols",
			Type:            "Article",
			Abstract:        "A review of crash and byzantine fault tolerant consensus, from Paxos to modern pipelined BFT.",
			PublicationDate: "2023-11-02",
			Journal:         "ACM Computing Surveys",
			Volume:          "56",
			Issue:           "4",
			Publisher:       "ACM",
			Keywords:        "distributed systems, consensus",
			Public:          true,
		},
		coAuthors: []service.CoAuthorFields{
			{Name: "Leslie Lamport", Order: 1},
		},
	},
	{
		fields: service.PublicationFields{
			Title:    "Notes on Reproducible Benchmarks",
			Type:     "Preprint",
			Abstract: "Working notes, not yet public.",
			Keywords: "benchmarks",
			Public:   false,
		},
	},
}

// seedDemoCmd 为当前登录用户创建示例出版物
var seedDemoCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Create sample publications for the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		created, err := seedDemo(cmd.Context(), s.lib, s.logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d publications\n", created)
		return nil
	},
}

func seedDemo(ctx context.Context, lib *service.Library, logger *zap.Logger) (int, error) {
	created := 0
	for _, demo := range demoPublications {
		draft := service.PublicationDraft{Fields: demo.fields}
		for _, c := range demo.coAuthors {
			draft.CoAuthors = append(draft.CoAuthors, service.NewDraft(c))
		}

		pub, report, err := lib.CreatePublication(ctx, draft)
		if err != nil {
			return created, fmt.Errorf("%s: %s", demo.fields.Title, service.Failure[any](err).DisplayError())
		}
		created++
		if !report.OK() {
			logger.Warn("demo publication created with errors", zap.String("id", pub.ID), zap.Error(report.Err()))
		}
	}
	return created, nil
}
