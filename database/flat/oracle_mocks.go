// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package flat

import (
	reflect "reflect"

	common "github.com/Fantom-foundation/Violetta/go/common"
	gomock "go.uber.org/mock/gomock"
)

// MockOracle is a mock of Oracle interface.
type MockOracle struct {
	ctrl     *gomock.Controller
	recorder *MockOracleMockRecorder
}

// MockOracleMockRecorder is the mock recorder for MockOracle.
type MockOracleMockRecorder struct {
	mock *MockOracle
}

// NewMockOracle creates a new mock instance.
func NewMockOracle(ctrl *gomock.Controller) *MockOracle {
	mock := &MockOracle{ctrl: ctrl}
	mock.recorder = &MockOracleMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockOracle) EXPECT() *MockOracleMockRecorder {
	return m.recorder
}

// FreeSlotsPreimage mocks base method.
func (m *MockOracle) FreeSlotsPreimage(state common.Hash, size uint64) (common.Hash, uint64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "FreeSlotsPreimage", state, size)
	ret0, _ := ret[0].(common.Hash)
	ret1, _ := ret[1].(uint64)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// FreeSlotsPreimage indicates an expected call of FreeSlotsPreimage.
func (mr *MockOracleMockRecorder) FreeSlotsPreimage(state, size any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "FreeSlotsPreimage", reflect.TypeOf((*MockOracle)(nil).FreeSlotsPreimage), state, size)
}

// IndexForKey mocks base method.
func (m *MockOracle) IndexForKey(key common.Key) (uint64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IndexForKey", key)
	ret0, _ := ret[0].(uint64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// IndexForKey indicates an expected call of IndexForKey.
func (mr *MockOracleMockRecorder) IndexForKey(key any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IndexForKey", reflect.TypeOf((*MockOracle)(nil).IndexForKey), key)
}

// PrevIndexForKey mocks base method.
func (m *MockOracle) PrevIndexForKey(key common.Key) (uint64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "PrevIndexForKey", key)
	ret0, _ := ret[0].(uint64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// PrevIndexForKey indicates an expected call of PrevIndexForKey.
func (mr *MockOracleMockRecorder) PrevIndexForKey(key any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PrevIndexForKey", reflect.TypeOf((*MockOracle)(nil).PrevIndexForKey), key)
}

// ProofForIndex mocks base method.
func (m *MockOracle) ProofForIndex(index uint64) (LeafProof, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ProofForIndex", index)
	ret0, _ := ret[0].(LeafProof)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ProofForIndex indicates an expected call of ProofForIndex.
func (mr *MockOracleMockRecorder) ProofForIndex(index any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ProofForIndex", reflect.TypeOf((*MockOracle)(nil).ProofForIndex), index)
}
