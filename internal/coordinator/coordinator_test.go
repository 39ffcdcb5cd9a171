package coordinator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/maxstorage/maxstorage-bridge/internal/maxstorage"
	"github.com/maxstorage/maxstorage-bridge/internal/models"
)

type fakeClient struct {
	snapshot maxstorage.Snapshot
	err      error
	calls    int
}

func (f *fakeClient) Setup() error { return nil }

func (f *fakeClient) GetData() (maxstorage.Snapshot, error) {
	f.calls++
	return f.snapshot, f.err
}

func (f *fakeClient) DeviceInfo() models.DeviceInfo {
	return models.DeviceInfo{Ident: "MXU-00231"}
}

func (f *fakeClient) Close() {}

type CoordinatorTest struct {
	suite.Suite
	client      *fakeClient
	coordinator Coordinator
}

func (s *CoordinatorTest) SetupTest() {
	s.client = &fakeClient{
		snapshot: maxstorage.Snapshot{"batterySoC": 55.0},
	}
	s.coordinator = New(s.client, time.Second)
}

func (s *CoordinatorTest) Test_NoSnapshotBeforeFirstRefresh() {
	_, ok := s.coordinator.LatestSnapshot()
	s.Assert().False(ok)
	s.Assert().False(s.coordinator.Healthy())
}

func (s *CoordinatorTest) Test_RefreshStoresSnapshot() {
	s.Require().NoError(s.coordinator.Refresh())
	snapshot, ok := s.coordinator.LatestSnapshot()
	s.Require().True(ok)
	value, err := snapshot.Value("batterySoC")
	s.Require().NoError(err)
	s.Assert().Equal(55.0, value)
	s.Assert().True(s.coordinator.Healthy())
}

func (s *CoordinatorTest) Test_NotifiesOnSuccessAndFailure() {
	notifications := 0
	unsubscribe := s.coordinator.Subscribe(func() { notifications++ })
	defer unsubscribe()

	s.Require().NoError(s.coordinator.Refresh())
	s.client.err = errors.New("boom")
	s.Require().Error(s.coordinator.Refresh())
	s.Assert().Equal(2, notifications)
}

func (s *CoordinatorTest) Test_FailureKeepsLastSnapshot() {
	s.Require().NoError(s.coordinator.Refresh())
	s.client.err = errors.New("boom")
	s.Require().Error(s.coordinator.Refresh())
	snapshot, ok := s.coordinator.LatestSnapshot()
	s.Require().True(ok)
	_, err := snapshot.Value("batterySoC")
	s.Assert().NoError(err)
	s.Assert().False(s.coordinator.Healthy())
}

func (s *CoordinatorTest) Test_UnsubscribeStopsNotifications() {
	notifications := 0
	unsubscribe := s.coordinator.Subscribe(func() { notifications++ })
	s.Require().NoError(s.coordinator.Refresh())
	unsubscribe()
	unsubscribe()
	s.Require().NoError(s.coordinator.Refresh())
	s.Assert().Equal(1, notifications)
}

func (s *CoordinatorTest) Test_BackoffDoublesAndCaps() {
	c := s.coordinator.(*coordinator)
	s.Assert().Equal(time.Second, c.nextWait())

	s.client.err = errors.New("boom")
	s.coordinator.Refresh()
	s.Assert().Equal(2*time.Second, c.nextWait())
	s.coordinator.Refresh()
	s.Assert().Equal(4*time.Second, c.nextWait())
	for i := 0; i < 10; i++ {
		s.coordinator.Refresh()
	}
	s.Assert().Equal(10*time.Second, c.nextWait())

	s.client.err = nil
	s.Require().NoError(s.coordinator.Refresh())
	s.Assert().Equal(time.Second, c.nextWait())
}

func (s *CoordinatorTest) Test_CloseSafeWithoutStart() {
	done := make(chan struct{})
	go func() {
		s.coordinator.Close()
		s.coordinator.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("Close blocked on a coordinator that never started")
	}
}

func (s *CoordinatorTest) Test_DeviceIdentity() {
	s.Assert().Equal("MXU-00231", s.coordinator.DeviceIdent())
	s.Assert().Equal("SolarMax", s.coordinator.Metadata().Manufacturer)
}

func TestCoordinator(t *testing.T) {
	suite.Run(t, new(CoordinatorTest))
}
