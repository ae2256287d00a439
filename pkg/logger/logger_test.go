package logger

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given an initialized logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { _ = Sync() }()

		Convey("Then Get returns a usable logger", func() {
			l := Get()
			So(l, ShouldNotBeNil)
			So(func() { l.Info(context.Background(), "test message", String("k", "v")) }, ShouldNotPanic)
		})

		Convey("And Named returns a child logger", func() {
			named := Named("test")
			So(named, ShouldNotBeNil)
			So(func() { named.Debug(context.Background(), "hidden at info") }, ShouldNotPanic)
		})

		Convey("And a nil context is tolerated", func() {
			//nolint:staticcheck // exercising the nil guard
			So(func() { Get().Warn(nil, "no ctx") }, ShouldNotPanic)
		})
	})
}

func TestRequestID(t *testing.T) {
	Convey("Given a context without a request id", t, func() {
		ctx := context.Background()
		So(RequestID(ctx), ShouldEqual, "")

		Convey("When a request id is attached", func() {
			ctx = WithRequestID(ctx, "req-1")

			Convey("Then it can be read back", func() {
				So(RequestID(ctx), ShouldEqual, "req-1")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given the level parser", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Known levels are accepted case-insensitively", func() {
			for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
				So(SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("Unknown levels are rejected", func() {
			err := SetLevelString("verbose")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unknown log level")
		})
	})
}
