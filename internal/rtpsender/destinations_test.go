package rtpsender

import (
	"net"
	"testing"

	"github.com/arung-agamani/disorder/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDestinationsBroadcastResolvesStatic(t *testing.T) {
	d, err := NewDestinations(config.RTPBroadcast, "239.1.2.3:5004")
	require.NoError(t, err)
	targets := d.Targets()
	require.Len(t, targets, 1)
	assert.Equal(t, 5004, targets[0].Port)
}

func TestNewDestinationsRequiresAddressOutsideRequestMode(t *testing.T) {
	_, err := NewDestinations(config.RTPUnicast, "")
	assert.Error(t, err)
}

func TestNewDestinationsRequestModeStartsEmpty(t *testing.T) {
	d, err := NewDestinations(config.RTPRequest, "")
	require.NoError(t, err)
	assert.Empty(t, d.Targets())
}

func TestDestinationsRegisterAndUnregister(t *testing.T) {
	d, err := NewDestinations(config.RTPRequest, "")
	require.NoError(t, err)

	addr := &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 6000}
	require.NoError(t, d.Register("conn-1", addr))
	require.Len(t, d.Targets(), 1)

	d.Unregister("conn-1")
	assert.Empty(t, d.Targets())
}

func TestDestinationsRegisterRejectedOutsideRequestMode(t *testing.T) {
	d, err := NewDestinations(config.RTPBroadcast, "239.1.2.3:5004")
	require.NoError(t, err)
	err = d.Register("conn-1", &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 6000})
	assert.Error(t, err)
}

func TestDestinationsReportAddress(t *testing.T) {
	d, err := NewDestinations(config.RTPMulticast, "239.1.2.3:5004")
	require.NoError(t, err)
	host, port := d.ReportAddress()
	assert.Equal(t, "239.1.2.3", host)
	assert.Equal(t, "5004", port)

	req, err := NewDestinations(config.RTPRequest, "")
	require.NoError(t, err)
	host, port = req.ReportAddress()
	assert.Equal(t, "-", host)
	assert.Equal(t, "-", port)
}
