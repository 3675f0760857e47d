package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttendanceBreakdownPercentage(t *testing.T) {
	tests := []struct {
		name       string
		breakdown  AttendanceBreakdown
		lateWeight float64
		want       float64
	}{
		{
			name:       "excused shrink the denominator",
			breakdown:  AttendanceBreakdown{Present: 8, Excused: 1, Absent: 1, TotalMandatory: 10},
			lateWeight: 1,
			want:       88.888888888888886,
		},
		{
			name:       "zero mandatory sessions",
			breakdown:  AttendanceBreakdown{},
			lateWeight: 1,
			want:       100,
		},
		{
			name:       "all sessions excused",
			breakdown:  AttendanceBreakdown{Excused: 4, TotalMandatory: 4},
			lateWeight: 1,
			want:       100,
		},
		{
			name:       "late at full credit",
			breakdown:  AttendanceBreakdown{Present: 6, Late: 2, Absent: 2, TotalMandatory: 10},
			lateWeight: 1,
			want:       80,
		},
		{
			name:       "late at half credit",
			breakdown:  AttendanceBreakdown{Present: 6, Late: 2, Absent: 2, TotalMandatory: 10},
			lateWeight: 0.5,
			want:       70,
		},
		{
			name:       "never marked counts absent",
			breakdown:  AttendanceBreakdown{Absent: 5, TotalMandatory: 5},
			lateWeight: 1,
			want:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.breakdown.Percentage(tt.lateWeight), 1e-9)
		})
	}
}
