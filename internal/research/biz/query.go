package biz

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lk2023060901/market-research-backend/internal/research/types"
)

const maxRelatedQueries = 10

// DefaultQuery is used when only a segment is given
func DefaultQuery(segment string) string {
	return fmt.Sprintf("mercado %s Brasil 2024", segment)
}

// RelatedQueries expands query with context-driven and generic market
// research variations, at most 10.
func RelatedQueries(query string, mc types.MarketContext) []string {
	queries := make([]string, 0, 11)
	if mc.Segment != "" {
		queries = append(queries,
			mc.Segment+" mercado brasileiro tendências 2024",
			mc.Segment+" oportunidades Brasil",
		)
	}
	if mc.Product != "" {
		queries = append(queries,
			mc.Product+" demanda mercado brasileiro",
			mc.Product+" concorrência análise Brasil",
		)
	}
	if mc.Audience != "" {
		queries = append(queries,
			mc.Audience+" comportamento consumo Brasil",
			mc.Audience+" pesquisa mercado dados",
		)
	}
	queries = append(queries,
		query+" estatísticas Brasil 2024",
		query+" pesquisa mercado dados",
		query+" análise competitiva",
		query+" oportunidades investimento",
		query+" tendências futuro",
	)

	if len(queries) > maxRelatedQueries {
		queries = queries[:maxRelatedQueries]
	}
	return queries
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// buildCorpus joins the first n sources, each cut to perSource runes
func buildCorpus(sources []*types.Source, n, perSource int) (string, int) {
	if len(sources) < n {
		n = len(sources)
	}
	var b strings.Builder
	for _, s := range sources[:n] {
		fmt.Fprintf(&b, "\n--- FONTE: %s ---\n", s.Title)
		b.WriteString(truncateRunes(s.Content, perSource))
		b.WriteString("\n")
	}
	return b.String(), n
}

func buildAnalysisPrompt(query string, mc types.MarketContext, corpus string) string {
	return fmt.Sprintf(`ANÁLISE INTELIGENTE DE DADOS DE MERCADO

QUERY ORIGINAL: %s

CONTEXTO:
- Segmento: %s
- Produto: %s
- Público: %s

DADOS COLETADOS:
%s

TAREFA:
Analise os dados coletados e extraia insights sobre tendências de mercado,
oportunidades de negócio, dados estatísticos relevantes, o público-alvo e a
concorrência. Use apenas informações presentes nos dados.`,
		query, orNA(mc.Segment), orNA(mc.Product), orNA(mc.Audience), corpus)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
