package mappings

import (
	"testing"

	"finstatements/pkg/core/dataio/iocore"

	"github.com/stretchr/testify/assert"
)

func TestBundledMappingsLoad(t *testing.T) {
	l := iocore.NewMappingLoader(FS)
	for _, path := range []string{FMP, Excel, CSV, HTML} {
		m := l.Load(path)
		assert.NotEmpty(t, m.Default, path)
	}

	fmp := l.Load(FMP)
	assert.Equal(t, "cost_of_goods_sold", fmp.Resolve("income_statement")["costOfRevenue"])
	assert.Equal(t, "total_assets", fmp.Resolve("balance_sheet")["totalAssets"])
	assert.NotContains(t, fmp.Resolve("income_statement"), "totalAssets")
}
