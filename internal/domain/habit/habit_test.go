package habit_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/slumber/internal/domain/habit"
	. "github.com/smartystreets/goconvey/convey"
)

func validRecord() habit.Record {
	return habit.Record{
		SleepDuration:    "7.5",
		Bedtime:          "23:15",
		WakeTime:         "06:45",
		Caffeine:         "Low",
		ExerciseDuration: "30",
		ScreenTime:       "20",
		StressLevel:      "3",
		Mood:             "Happy",
		Interruptions:    "No",
	}
}

func publicMessage(err error) string {
	var fe *habit.FieldError
	if errors.As(err, &fe) {
		return fe.Public()
	}
	return ""
}

func TestParser_Valid(t *testing.T) {
	Convey("Given a parser and a well-formed record", t, func() {
		p := habit.NewParser()

		Convey("When parsing", func() {
			h, err := p.Parse(validRecord())

			Convey("Then every field is converted", func() {
				So(err, ShouldBeNil)
				So(h.SleepHours, ShouldEqual, 7.5)
				So(h.Bedtime, ShouldResemble, habit.TimeOfDay{Hour: 23, Minute: 15})
				So(h.WakeTime.Hours(), ShouldEqual, 6.75)
				So(h.Caffeine, ShouldEqual, habit.CaffeineLow)
				So(h.ExerciseMinutes, ShouldEqual, 30)
				So(h.ScreenMinutes, ShouldEqual, 20)
				So(h.Stress, ShouldEqual, 3)
				So(h.Mood, ShouldEqual, habit.MoodHappy)
				So(h.Interrupted(), ShouldBeFalse)
			})
		})

		Convey("When labels use a different case", func() {
			r := validRecord()
			r.Caffeine = "moderate"
			r.Mood = "ANXIOUS"
			r.Interruptions = "yes"
			h, err := p.Parse(r)

			Convey("Then they are normalized", func() {
				So(err, ShouldBeNil)
				So(h.Caffeine, ShouldEqual, habit.CaffeineModerate)
				So(h.Mood, ShouldEqual, habit.MoodAnxious)
				So(h.Interruptions, ShouldEqual, 1)
			})
		})

		Convey("When numeric forms are used for caffeine and interruptions", func() {
			cases := map[habit.Value]habit.CaffeineLevel{
				"0": habit.CaffeineNone, "1": habit.CaffeineLow, "2": habit.CaffeineModerate, "5": habit.CaffeineHigh,
			}
			for in, want := range cases {
				r := validRecord()
				r.Caffeine = in
				r.Interruptions = "3"
				h, err := p.Parse(r)
				So(err, ShouldBeNil)
				So(h.Caffeine, ShouldEqual, want)
				So(h.Interruptions, ShouldEqual, 3)
			}
		})
	})
}

func TestParser_Invalid(t *testing.T) {
	Convey("Given a parser", t, func() {
		p := habit.NewParser()

		Convey("When a field is missing", func() {
			r := validRecord()
			r.SleepDuration = "  "
			_, err := p.Parse(r)

			Convey("Then a missing-field error names it", func() {
				So(errors.Is(err, habit.ErrMissingField), ShouldBeTrue)
				So(publicMessage(err), ShouldEqual, "Missing sleep_duration")
			})
		})

		Convey("When values are out of range or malformed", func() {
			cases := []struct {
				mutate func(*habit.Record)
				want   string
			}{
				{func(r *habit.Record) { r.SleepDuration = "0" }, "Invalid sleep_duration value"},
				{func(r *habit.Record) { r.SleepDuration = "NaN" }, "Invalid sleep_duration value"},
				{func(r *habit.Record) { r.Bedtime = "25:00" }, "Invalid bedtime value"},
				{func(r *habit.Record) { r.WakeTime = "7am" }, "Invalid wake_time value"},
				{func(r *habit.Record) { r.Caffeine = "Lots" }, "Invalid caffeine value"},
				{func(r *habit.Record) { r.Caffeine = "-1" }, "Invalid caffeine value"},
				{func(r *habit.Record) { r.ExerciseDuration = "-5" }, "Invalid exercise_duration value"},
				{func(r *habit.Record) { r.ScreenTime = "lots" }, "Invalid screen_time value"},
				{func(r *habit.Record) { r.StressLevel = "11" }, "Invalid stress_level value"},
				{func(r *habit.Record) { r.StressLevel = "0" }, "Invalid stress_level value"},
				{func(r *habit.Record) { r.Mood = "Grumpy" }, "Invalid mood value"},
				{func(r *habit.Record) { r.Interruptions = "-2" }, "Invalid interruptions value"},
			}
			for _, c := range cases {
				r := validRecord()
				c.mutate(&r)
				_, err := p.Parse(r)
				So(errors.Is(err, habit.ErrInvalidField), ShouldBeTrue)
				So(publicMessage(err), ShouldEqual, c.want)
			}
		})

		Convey("When several fields are wrong", func() {
			r := validRecord()
			r.Mood = ""
			r.Caffeine = "bogus"
			_, err := p.Parse(r)

			Convey("Then the first field in wire order is reported", func() {
				So(publicMessage(err), ShouldEqual, "Invalid caffeine value")
			})
		})
	})

	Convey("Given a parser with a 0-10 stress range", t, func() {
		p := habit.NewParser(habit.WithStressRange(0, 10))
		r := validRecord()
		r.StressLevel = "0"

		Convey("Then zero stress is accepted", func() {
			h, err := p.Parse(r)
			So(err, ShouldBeNil)
			So(h.Stress, ShouldEqual, 0)
			lo, hi := p.StressRange()
			So(lo, ShouldEqual, 0)
			So(hi, ShouldEqual, 10)
		})
	})
}

func TestHabit_Fingerprint(t *testing.T) {
	Convey("Given two spellings of the same record", t, func() {
		p := habit.NewParser()
		a := validRecord()
		b := validRecord()
		b.SleepDuration = "7.50"
		b.Caffeine = "low"
		b.Bedtime = "23:15:00"

		ha, errA := p.Parse(a)
		hb, errB := p.Parse(b)
		So(errA, ShouldBeNil)
		So(errB, ShouldBeNil)

		Convey("Then they share a fingerprint", func() {
			So(ha.Fingerprint(), ShouldEqual, hb.Fingerprint())
		})

		Convey("And a different record does not", func() {
			c := validRecord()
			c.StressLevel = "4"
			hc, err := p.Parse(c)
			So(err, ShouldBeNil)
			So(hc.Fingerprint(), ShouldNotEqual, ha.Fingerprint())
		})
	})
}

func TestRecord_JSON(t *testing.T) {
	Convey("Given a JSON body mixing strings, numbers and null", t, func() {
		body := `{"sleep_duration":7,"bedtime":"23:00","wake_time":"07:00","caffeine":"None",
			"exercise_duration":45.5,"screen_time":"10","stress_level":2,"mood":"Neutral","interruptions":null}`
		var r habit.Record
		err := json.Unmarshal([]byte(body), &r)

		Convey("Then every value decodes as text", func() {
			So(err, ShouldBeNil)
			So(r.SleepDuration, ShouldEqual, habit.Value("7"))
			So(r.ExerciseDuration, ShouldEqual, habit.Value("45.5"))
			So(r.StressLevel, ShouldEqual, habit.Value("2"))
			So(r.Interruptions, ShouldEqual, habit.Value(""))
		})

		Convey("And re-encoding sends strings", func() {
			out, err := json.Marshal(r)
			So(err, ShouldBeNil)
			So(string(out), ShouldContainSubstring, `"sleep_duration":"7"`)
		})
	})

	Convey("Given a JSON body with an object value", t, func() {
		var r habit.Record
		err := json.Unmarshal([]byte(`{"mood":{"x":1}}`), &r)

		Convey("Then decoding fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
