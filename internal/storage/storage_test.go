package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/randomlife/internal/region"
	"github.com/magabrotheeeer/randomlife/internal/storage"
)

type stubAdapter struct {
	storage.Adapter
	name string
}

func (s stubAdapter) Name() string { return s.name }

func TestSelect(t *testing.T) {
	cn := stubAdapter{name: "cloudbase"}
	intl := stubAdapter{name: "supabase"}

	tests := []struct {
		name     string
		region   region.Region
		cn       storage.Adapter
		intl     storage.Adapter
		wantName string
		wantErr  error
	}{
		{name: "cn picks cloudbase", region: region.CN, cn: cn, intl: intl, wantName: "cloudbase"},
		{name: "intl picks supabase", region: region.INTL, cn: cn, intl: intl, wantName: "supabase"},
		{name: "cn without adapter", region: region.CN, cn: nil, intl: intl, wantErr: storage.ErrAdapterMissing},
		{name: "intl without adapter", region: region.INTL, cn: cn, intl: nil, wantErr: storage.ErrAdapterMissing},
		{name: "unknown region", region: region.Region("EU"), cn: cn, intl: intl, wantErr: region.ErrUnknownRegion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.Select(tt.region, tt.cn, tt.intl)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, got.Name())
		})
	}
}

func TestClampPage(t *testing.T) {
	limit, offset := storage.ClampPage(0, -5)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	limit, offset = storage.ClampPage(500, 40)
	assert.Equal(t, 100, limit)
	assert.Equal(t, 40, offset)
}
