// frontrow-peer is a headless participant for testing and operations: it
// joins a show over the websocket endpoint as either the performer or an
// audience member, negotiating real media links without a browser.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/eldrgeek/frontrow/internal/client"
	"github.com/eldrgeek/frontrow/internal/domain"
	pkglog "github.com/eldrgeek/frontrow/pkg/log"
)

const oggPageDuration = 20 * time.Millisecond

var (
	serverURL   string
	displayName string
	logLevel    string
	logPretty   bool
	stunServers []string
)

var rootCmd = &cobra.Command{
	Use:   "frontrow-peer",
	Short: "Headless show participant",
	Long: `frontrow-peer joins a running show server as a real participant.

The perform subcommand takes the stage: it starts the show and originates
a media link to every audience connection the server announces. The watch
subcommand claims a seat and answers the performer's offer.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		pkglog.Init(pkglog.Config{Level: logLevel, Pretty: logPretty, ServiceName: "frontrow-peer"})
	},
}

var performCmd = &cobra.Command{
	Use:   "perform",
	Short: "Take the stage and go live",
	RunE:  runPerform,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Claim a seat and receive the performer's media",
	RunE:  runWatch,
}

var (
	videoFile  string
	audioFile  string
	countdown  int
	seatID     string
	avatarRef  string
	presentMod string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "ws://localhost:3001/ws", "websocket endpoint of the show server")
	rootCmd.PersistentFlags().StringVar(&displayName, "name", "frontrow-peer", "display name")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "human-readable log output")
	rootCmd.PersistentFlags().StringSliceVar(&stunServers, "stun", []string{"stun:stun.l.google.com:19302"}, "STUN server URLs")

	performCmd.Flags().StringVar(&videoFile, "video", "", "IVF file (VP8) to loop as the video track")
	performCmd.Flags().StringVar(&audioFile, "audio", "", "Ogg file (Opus) to loop as the audio track")
	performCmd.Flags().IntVar(&countdown, "countdown", 0, "run a pre-show countdown of this many seconds before going live")

	watchCmd.Flags().StringVar(&seatID, "seat", "", "seat to claim (e.g. seat-1)")
	watchCmd.Flags().StringVar(&avatarRef, "avatar", "", "avatar image reference")
	watchCmd.Flags().StringVar(&presentMod, "mode", string(domain.ModePhoto), "presentation mode (photo or video)")
	watchCmd.MarkFlagRequired("seat")

	rootCmd.AddCommand(performCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func iceServers() []webrtc.ICEServer {
	if len(stunServers) == 0 {
		return nil
	}
	return []webrtc.ICEServer{{URLs: stunServers}}
}

func runPerform(cmd *cobra.Command, args []string) error {
	logger := pkglog.L()
	ctx := cmd.Context()

	videoTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "frontrow")
	if err != nil {
		return fmt.Errorf("create video track: %w", err)
	}
	audioTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "frontrow")
	if err != nil {
		return fmt.Errorf("create audio track: %w", err)
	}

	c, err := client.Dial(ctx, client.Options{
		URL:        serverURL,
		Role:       client.RolePerformer,
		Tracks:     []webrtc.TrackLocal{videoTrack, audioTrack},
		ICEServers: iceServers(),
	})
	if err != nil {
		return err
	}
	defer c.Close()

	streamCtx, stopStreams := context.WithCancel(ctx)
	defer stopStreams()
	if videoFile != "" {
		go loopVideo(streamCtx, videoTrack, videoFile)
	}
	if audioFile != "" {
		go loopAudio(streamCtx, audioTrack, audioFile)
	}

	if countdown > 0 {
		logger.Info().Int("seconds", countdown).Msg("starting countdown")
		if err := c.StartCountdown(countdown); err != nil {
			return err
		}
	} else {
		logger.Info().Msg("going live")
		if err := c.GoLive(); err != nil {
			return err
		}
	}

	waitForSignal(c, logger, "performer")

	logger.Info().Msg("ending show")
	if err := c.EndShow(); err != nil {
		logger.Warn().Err(err).Msg("failed to end show")
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := pkglog.L()

	c, err := client.Dial(cmd.Context(), client.Options{
		URL:        serverURL,
		Role:       client.RoleAudience,
		ICEServers: iceServers(),
		OnTrack: func(remoteID string, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
			go drainTrack(remoteID, track)
		},
	})
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info().Str(pkglog.FieldSeatID, seatID).Msg("claiming seat")
	if err := c.SelectSeat(seatID, displayName, avatarRef, domain.PresentationMode(presentMod)); err != nil {
		return err
	}

	waitForSignal(c, logger, "audience")

	if err := c.ReleaseSeat(seatID); err != nil {
		logger.Warn().Err(err).Msg("failed to release seat")
	}
	return nil
}

// waitForSignal blocks until interrupted or the signaling connection drops.
func waitForSignal(c *client.Client, logger zerolog.Logger, role string) {
	logger.Info().Str("role", role).Msg("connected, ctrl-c to leave")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-c.Done():
	}
}

// drainTrack reads and discards incoming media, logging a liveness line
// periodically so operators can see frames flowing.
func drainTrack(remoteID string, track *webrtc.TrackRemote) {
	logger := pkglog.L()
	var packets atomic.Int64
	var lastReported int64
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := track.ReadRTP(); err != nil {
				return
			}
			packets.Add(1)
		}
	}()

	for {
		select {
		case <-done:
			logger.Info().
				Str(pkglog.FieldTarget, remoteID).
				Str("codec", track.Codec().MimeType).
				Int64("packets", packets.Load()).
				Msg("track ended")
			return
		case <-ticker.C:
			if n := packets.Load(); n != lastReported {
				lastReported = n
				logger.Debug().
					Str(pkglog.FieldTarget, remoteID).
					Str("codec", track.Codec().MimeType).
					Int64("packets", n).
					Msg("receiving media")
			}
		}
	}
}

// loopVideo feeds an IVF file's VP8 frames into the track on its native
// timebase, restarting from the top at EOF.
func loopVideo(ctx context.Context, track *webrtc.TrackLocalStaticSample, path string) {
	logger := pkglog.L()
	for ctx.Err() == nil {
		file, err := os.Open(path)
		if err != nil {
			logger.Error().Err(err).Str("file", path).Msg("cannot open video file")
			return
		}

		ivf, header, err := ivfreader.NewWith(file)
		if err != nil {
			file.Close()
			logger.Error().Err(err).Str("file", path).Msg("cannot parse IVF header")
			return
		}

		frameDuration := time.Millisecond * time.Duration(
			(float32(header.TimebaseNumerator)/float32(header.TimebaseDenominator))*1000)
		ticker := time.NewTicker(frameDuration)

		for ctx.Err() == nil {
			frame, _, err := ivf.ParseNextFrame()
			if err != nil {
				break // EOF, loop the file
			}
			if err := track.WriteSample(media.Sample{Data: frame, Duration: frameDuration}); err != nil {
				logger.Warn().Err(err).Msg("video sample write failed")
			}
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		}
		ticker.Stop()
		file.Close()
	}
}

// loopAudio feeds an Ogg file's Opus pages into the track at the standard
// 20ms page duration, restarting from the top at EOF.
func loopAudio(ctx context.Context, track *webrtc.TrackLocalStaticSample, path string) {
	logger := pkglog.L()
	for ctx.Err() == nil {
		file, err := os.Open(path)
		if err != nil {
			logger.Error().Err(err).Str("file", path).Msg("cannot open audio file")
			return
		}

		ogg, _, err := oggreader.NewWith(file)
		if err != nil {
			file.Close()
			logger.Error().Err(err).Str("file", path).Msg("cannot parse Ogg header")
			return
		}

		ticker := time.NewTicker(oggPageDuration)
		var lastGranule uint64

		for ctx.Err() == nil {
			pageData, pageHeader, err := ogg.ParseNextPage()
			if err != nil {
				break // EOF, loop the file
			}

			sampleCount := pageHeader.GranulePosition - lastGranule
			lastGranule = pageHeader.GranulePosition
			sampleDuration := time.Duration(sampleCount) * time.Millisecond / 48

			if err := track.WriteSample(media.Sample{Data: pageData, Duration: sampleDuration}); err != nil {
				logger.Warn().Err(err).Msg("audio sample write failed")
			}
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		}
		ticker.Stop()
		file.Close()
	}
}
