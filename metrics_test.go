package tunping_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunping"
)

func TestMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := tunping.NewMetricsWithRegistry(reg)

	ifce := &fakeInterface{}
	responder := tunping.NewResponder(ifce, tunping.WithMetrics(metrics))
	require.NoError(t, responder.HandleFrame(buildEchoRequest(t, peerIP, localIP, 1, 1, incrementing(56))))
	require.NoError(t, responder.HandleFrame([]byte{0x00}))

	count, err := testutil.GatherAndCount(reg,
		"tunping_frames_received_total",
		"tunping_echo_replies_sent_total",
		"tunping_frames_dropped_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.FramesReceived))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FramesDropped.WithLabelValues(tunping.DropReasonMalformed)))
}

func TestCapabilityIcmpWithoutMetrics(t *testing.T) {
	capability := tunping.NewCapabilityIcmp(nil)
	packet, err := tunping.ParseIPv4Packet(buildIPv4(t, peerIP, localIP, 64, tunping.IPv4ProtocolICMP, []byte{8}))
	require.NoError(t, err)

	require.True(t, capability.Match(packet))
	status, err := capability.HandleRequest(&fakeInterface{}, packet)
	assert.NoError(t, err)
	assert.Equal(t, tunping.CapabilityStatusFail, status)
}
