package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/apperr"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/model"
)

// testRules pins today to Wednesday 2030-01-02.
func testRules() Rules {
	r := DefaultRules()
	r.Now = func() time.Time { return time.Date(2030, 1, 2, 12, 0, 0, 0, time.UTC) }
	return r
}

func validInput() model.ReservationInput {
	return model.ReservationInput{
		FirstName:       "Rick",
		LastName:        "Sanchez",
		MobileNumber:    "202-555-0164",
		ReservationDate: "2030-01-03",
		ReservationTime: "18:30",
		People:          float64(4),
	}
}

func TestValidateReservation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *model.ReservationInput)
		wantMsg string
	}{
		{"valid", func(in *model.ReservationInput) {}, ""},
		{"today is allowed", func(in *model.ReservationInput) { in.ReservationDate = "2030-01-02" }, ""},
		{"opening time inclusive", func(in *model.ReservationInput) { in.ReservationTime = "10:30" }, ""},
		{"closing time inclusive", func(in *model.ReservationInput) { in.ReservationTime = "21:30" }, ""},
		{"missing first name", func(in *model.ReservationInput) { in.FirstName = "" }, "Field 'first_name' is required."},
		{"blank last name", func(in *model.ReservationInput) { in.LastName = "   " }, "Field 'last_name' is required."},
		{"missing mobile", func(in *model.ReservationInput) { in.MobileNumber = "" }, "Field 'mobile_number' is required."},
		{"missing date", func(in *model.ReservationInput) { in.ReservationDate = "" }, "Field 'reservation_date' is required."},
		{"missing time", func(in *model.ReservationInput) { in.ReservationTime = "" }, "Field 'reservation_time' is required."},
		{"missing people", func(in *model.ReservationInput) { in.People = nil }, "Field 'people' is required."},
		{"zero people", func(in *model.ReservationInput) { in.People = float64(0) }, "Field 'people' is required."},
		{"people as string", func(in *model.ReservationInput) { in.People = "4" }, "people must be a number greater than 0"},
		{"negative people", func(in *model.ReservationInput) { in.People = float64(-2) }, "people must be a number greater than 0"},
		{"fractional people", func(in *model.ReservationInput) { in.People = 2.5 }, "people must be a number greater than 0"},
		{"malformed date", func(in *model.ReservationInput) { in.ReservationDate = "01/03/2030" }, "reservation_date must be a valid date in YYYY-MM-DD format"},
		{"impossible date", func(in *model.ReservationInput) { in.ReservationDate = "2030-02-31" }, "reservation_date must be a valid date"},
		{"past date", func(in *model.ReservationInput) { in.ReservationDate = "2023-01-01" }, "Reservation must be for a future date."},
		{"tuesday", func(in *model.ReservationInput) { in.ReservationDate = "2030-01-08" }, "Restaurant is closed on Tuesdays."},
		{"malformed time", func(in *model.ReservationInput) { in.ReservationTime = "6:30pm" }, "reservation_time must be a valid time in HH:MM format"},
		{"hour out of range", func(in *model.ReservationInput) { in.ReservationTime = "24:00" }, "reservation_time must be a valid time in HH:MM format"},
		{"before opening", func(in *model.ReservationInput) { in.ReservationTime = "10:29" }, "Reservation time must be between 10:30 and 21:30."},
		{"after closing", func(in *model.ReservationInput) { in.ReservationTime = "21:31" }, "Reservation time must be between 10:30 and 21:30."},
	}

	rules := testRules()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			res, err := rules.ValidateReservation(in)
			if tt.wantMsg == "" {
				require.NoError(t, err)
				assert.Equal(t, model.StatusBooked, res.Status)
				assert.Equal(t, 4, res.People)
				return
			}
			require.Error(t, err)
			ae, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, ae.Kind)
			assert.Equal(t, tt.wantMsg, ae.Message)
		})
	}
}

func TestValidateReservationRespectsLocation(t *testing.T) {
	// 23:30 UTC on Jan 2 is already Jan 3 in Tokyo.
	loc := time.FixedZone("JST", 9*3600)
	rules := DefaultRules()
	rules.Location = loc
	rules.Now = func() time.Time { return time.Date(2030, 1, 2, 23, 30, 0, 0, time.UTC) }

	in := validInput()
	in.ReservationDate = "2030-01-02"
	_, err := rules.ValidateReservation(in)
	require.Error(t, err)
	assert.Equal(t, "2030-01-03", rules.Today())
}

func TestValidatePatch(t *testing.T) {
	rules := testRules()

	p, err := rules.ValidatePatch(map[string]any{"people": float64(6), "first_name": " Morty "})
	require.NoError(t, err)
	require.NotNil(t, p.People)
	assert.Equal(t, 6, *p.People)
	assert.Equal(t, "Morty", *p.FirstName)
	assert.Nil(t, p.ReservationDate)

	_, err = rules.ValidatePatch(map[string]any{"status": "seated"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = rules.ValidatePatch(map[string]any{"reservation_date": "2030-01-08"})
	ae, _ := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "Restaurant is closed on Tuesdays.", ae.Message)

	_, err = rules.ValidatePatch(map[string]any{"last_name": ""})
	ae, _ = apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "Field 'last_name' is required.", ae.Message)

	_, err = rules.ValidatePatch(map[string]any{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestValidateTable(t *testing.T) {
	tbl, err := ValidateTable(model.TableInput{TableName: "Bar #1", Capacity: float64(2)})
	require.NoError(t, err)
	assert.Equal(t, "Bar #1", tbl.TableName)
	assert.Equal(t, 2, tbl.Capacity)
	assert.Nil(t, tbl.ReservationID)

	_, err = ValidateTable(model.TableInput{TableName: "B", Capacity: float64(2)})
	ae, _ := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "'table_name' must be at least 2 characters long.", ae.Message)

	for _, bad := range []any{nil, float64(0), "4", 1.5} {
		_, err = ValidateTable(model.TableInput{TableName: "Patio", Capacity: bad})
		ae, _ = apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "'capacity' must be a number greater than 0.", ae.Message)
	}
}

func TestValidateSeatRequest(t *testing.T) {
	id, err := ValidateSeatRequest(float64(12))
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, bad := range []any{nil, "12", float64(-1), float64(0)} {
		_, err := ValidateSeatRequest(bad)
		ae, _ := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "A reservation_id is required in the request body.", ae.Message)
	}
}

func TestValidateStatus(t *testing.T) {
	st, err := ValidateStatus("finished")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, st)

	_, err = ValidateStatus("no_show")
	ae, _ := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "status 'no_show' is unknown.", ae.Message)

	_, err = ValidateStatus(nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestValidateListDate(t *testing.T) {
	assert.NoError(t, ValidateListDate("2020-12-30"))
	assert.Error(t, ValidateListDate(""))
	assert.Error(t, ValidateListDate("2020-13-01"))
	assert.Error(t, ValidateListDate("yesterday"))
}
