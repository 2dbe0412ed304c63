package service

import (
	"gitee.com/czyczk/datawave/internal/blockchain/bcao"
	"gitee.com/czyczk/datawave/internal/blockchain/chaincodectx"
)

// Info needed for a service to know which package it's serving and how to reach the chain.
type Info struct {
	ChainCtx  *chaincodectx.SuiChainCtx
	ChainBCAO bcao.IChainBCAO
}
