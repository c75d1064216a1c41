package refdata

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ldb/internal/config"
)

func TestParseClasses(t *testing.T) {
	rows := [][]string{
		{"Class_Rusname", "Group_Name", "Purpose"},
		{"Кабели силовые", "Кабельная продукция", "Передача электроэнергии"},
		{"Выключатели", "", ""},
		{"", "мусор", ""},
		{"Розетки"},
	}

	classes, err := ParseClasses(rows)
	require.NoError(t, err)
	require.Len(t, classes, 3)

	assert.Equal(t, "Кабели силовые", classes[0].RusName)
	require.NotNil(t, classes[0].GroupName)
	assert.Equal(t, "Кабельная продукция", *classes[0].GroupName)

	assert.Nil(t, classes[1].GroupName)
	assert.Nil(t, classes[1].Purpose)

	assert.Equal(t, "Розетки", classes[2].RusName)
	assert.Nil(t, classes[2].GroupName)
}

func TestParseClassesMissingKeyColumn(t *testing.T) {
	_, err := ParseClasses([][]string{{"group_name", "purpose"}})
	assert.Error(t, err)

	_, err = ParseClasses(nil)
	assert.Error(t, err)
}

func TestParseCharacteristics(t *testing.T) {
	rows := [][]string{
		{"characteristic", "characteristic_good", "priority"},
		{"Сечение", "Сечение жилы", "2"},
		{"Длина", "", "oops"},
		{"", "бесхозная", "1"},
	}

	characteristics, err := ParseCharacteristics(rows)
	require.NoError(t, err)
	require.Len(t, characteristics, 2)

	assert.Equal(t, "Сечение", characteristics[0].Characteristic)
	require.NotNil(t, characteristics[0].DisplayName)
	assert.Equal(t, "Сечение жилы", *characteristics[0].DisplayName)
	require.NotNil(t, characteristics[0].Priority)
	assert.Equal(t, 2, *characteristics[0].Priority)

	assert.Equal(t, "Длина", characteristics[1].Characteristic)
	assert.Nil(t, characteristics[1].DisplayName)
	assert.Nil(t, characteristics[1].Priority)
}

type fakeRefStore struct {
	knownClasses         map[string]struct{}
	knownCharacteristics map[string]struct{}
	classUpdates         []string
	charUpdates          []string
}

func (s *fakeRefStore) UpdateClassRefData(rusName string, _, _ *string) (bool, error) {
	if _, ok := s.knownClasses[rusName]; !ok {
		return false, nil
	}
	s.classUpdates = append(s.classUpdates, rusName)
	return true, nil
}

func (s *fakeRefStore) UpdateCharacteristicRefData(characteristic string, _ *string, _ *int) (bool, error) {
	if _, ok := s.knownCharacteristics[characteristic]; !ok {
		return false, nil
	}
	s.charUpdates = append(s.charUpdates, characteristic)
	return true, nil
}

type memSource struct {
	tabs map[string][][]string
}

func (s *memSource) Rows(_ context.Context, tab string) ([][]string, error) {
	return s.tabs[tab], nil
}

func TestUpdaterRun(t *testing.T) {
	cfg, _ := config.Load()

	source := &memSource{tabs: map[string][][]string{
		cfg.ClassesTab: {
			{"class_rusname", "group_name", "purpose"},
			{"Кабели силовые", "Кабельная продукция", ""},
			{"Несуществующий класс", "x", "y"},
		},
		cfg.CharacteristicsTab: {
			{"characteristic", "characteristic_good", "priority"},
			{"Сечение", "Сечение жилы", "1"},
		},
	}}
	store := &fakeRefStore{
		knownClasses:         map[string]struct{}{"Кабели силовые": {}},
		knownCharacteristics: map[string]struct{}{"Сечение": {}},
	}

	report, err := NewUpdater(source, store, cfg, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.ClassesUpdated)
	assert.Equal(t, 1, report.ClassesUnmatched)
	assert.Equal(t, 1, report.CharacteristicsUpdated)
	assert.Equal(t, 0, report.CharacteristicsUnmatched)
	assert.Equal(t, []string{"Кабели силовые"}, store.classUpdates)
	assert.Equal(t, []string{"Сечение"}, store.charUpdates)
}

func TestXLSXSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refdata.xlsx")

	f := excelize.NewFile()
	sheet := "Classes"
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]string{"class_rusname", "group_name", "purpose"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]string{"Кабели силовые", "Кабельная продукция", "Передача электроэнергии"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := NewXLSXSource(path).Rows(context.Background(), sheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	classes, err := ParseClasses(rows)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Кабели силовые", classes[0].RusName)
}
