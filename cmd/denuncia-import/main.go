// denuncia-import loads an XLSX export of complaints into the source
// collection so the pipeline can process them.
package main

import (
	"context"
	"flag"
	"time"

	"denuncia_pipeline/internal/config"
	"denuncia_pipeline/internal/dataset"
	"denuncia_pipeline/internal/logger"
	"denuncia_pipeline/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.New()

	file := flag.String("file", "", "XLSX file with one complaint per row")
	collection := flag.String("collection", cfg.SourceCollection, "target collection")
	flag.Parse()

	if *file == "" {
		log.Fatal("missing -file")
	}

	docs, err := dataset.Load(*file)
	if err != nil {
		log.WithError(err).Fatal("load dataset")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer st.Close()

	col := st.Collection(*collection)
	ctx := context.Background()
	ts := time.Now().UTC()
	for _, doc := range docs {
		if err := col.Upsert(ctx, doc, ts); err != nil {
			log.WithError(err).WithField("doc_id", doc.ID).Fatal("upsert")
		}
	}
	log.WithField("count", len(docs)).WithField("collection", *collection).Info("import complete")
}
