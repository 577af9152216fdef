package ai

// eventsSchemaDescription describes the ClickHouse schema used for NL→SQL
// prompting. Keep it in sync with the recorder's table definitions.
const eventsSchemaDescription = `
Database: amm

Table: swaps
Columns:
  - pool         String    -- Pool address (base58)
  - pair         String    -- Canonical pair, "mintLow/mintHigh" (base58 mints)
  - caller       String    -- Swapping wallet (base58)
  - mint_in      String    -- Mint sold by the caller
  - mint_out     String    -- Mint bought by the caller
  - amount_in    UInt64    -- Raw base units of mint_in
  - amount_out   UInt64    -- Raw base units of mint_out
  - fee_bps      UInt16    -- Pool fee in basis points
  - impact_bps   UInt16    -- Price impact in basis points
  - reserve_in   UInt64    -- Input-side vault balance before the swap
  - reserve_out  UInt64    -- Output-side vault balance before the swap
  - execution_px Float64   -- amount_out / amount_in
  - timestamp    DateTime  -- Commit time (UTC)

Table: liquidity
Columns:
  - pool         String    -- Pool address (base58)
  - pair         String    -- Canonical pair label
  - caller       String    -- Depositing wallet (base58)
  - mint_low     String    -- Lower mint of the pair
  - mint_high    String    -- Higher mint of the pair
  - amount_low   UInt64    -- Raw base units deposited of mint_low
  - amount_high  UInt64    -- Raw base units deposited of mint_high
  - timestamp    DateTime  -- Commit time (UTC)

Table: transfers
Columns:
  - from_account String    -- Source token account (base58)
  - to_account   String    -- Destination token account (base58)
  - mint         String    -- Mint transferred
  - amount       UInt64    -- Raw base units moved
  - timestamp    DateTime  -- Commit time (UTC)

Notes:
  - Amounts are raw integer base units, not decimal-adjusted.
  - For swap volume use SUM(amount_in) or SUM(amount_out) depending on side.
  - Time filters should use timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.
`
