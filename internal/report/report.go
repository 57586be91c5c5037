// Package report builds admin workbooks: the filtered booking report and the
// monthly full-table audit export.
package report

import (
	"fmt"
	"io"

	"github.com/JPallas22/techgym/internal/models"
)

var bookingColumns = []string{
	"booking_id", "ref", "enrollment", "student_name",
	"weekday", "time", "age_group", "created_at",
}

// WriteBookings renders a booking report workbook to w.
func WriteBookings(details []models.BookingDetail, w io.Writer) error {
	excel := NewExcelizeWriter()

	if err := excel.AddSheet("bookings"); err != nil {
		return err
	}
	if err := excel.WriteHeader(bookingColumns); err != nil {
		return err
	}
	for _, d := range details {
		row := []interface{}{
			d.BookingID, d.Ref, d.Enrollment, d.StudentName,
			d.Weekday.String(), d.Time, d.AgeGroup,
			d.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := excel.WriteRow(row); err != nil {
			return fmt.Errorf("write booking %d: %w", d.BookingID, err)
		}
	}

	return excel.Save(w)
}
